// Package pipeline turns a loaded document into page geometry, one page at
// a time.
//
// A [DocumentController] loads a document through an [engine.Engine],
// fetches its metadata and page handles concurrently, then drives a
// [PageProcessor] over each page in order. Results arrive on the
// controller's event channel:
//
//	ctrl := pipeline.NewDocumentController(engine.New())
//	if err := ctrl.Parse(ctx, data); err != nil {
//		return err
//	}
//	for ev := range ctrl.Events() {
//		switch ev := ev.(type) {
//		case pipeline.MetadataReady:
//			fmt.Println(ev.Title)
//		case pipeline.PagesReady:
//			fmt.Println(len(ev.Pages), ev.Width)
//		}
//	}
//
// Only one page renders at a time. A page that fails to render still
// produces a geometry record; a document that fails to load produces
// neither a MetadataReady nor a PagesReady event.
package pipeline
