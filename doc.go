// Package strata is the composition root for the Strata persistence engine.
//
// Strata saves selected fields of a live object graph into named groups on disk and
// puts them back onto the same graph later. Fields opt in with a struct tag naming the
// group they belong to:
//
//	type Player struct {
//		Score    int       `persist:"progress.json"`
//		Settings *Settings `persist:"prefs.json,asset"`
//		Target   *Enemy    `persist:"progress.json,ref"`
//	}
//
// Each group is a single file replaced atomically. A group that cannot be read never
// prevents the other groups from loading, and a record that cannot be applied never
// stops the rest of its group.
//
// Usage:
//
//	scene := strata.NewScene()
//	scene.Add("hero", &Player{})
//
//	eng, err := strata.New(scene, "./saves", strata.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := eng.SaveAll(ctx); err != nil {
//		logger.Warn("save incomplete", "error", err)
//	}
//	ok := eng.LoadAll(ctx)
package strata
