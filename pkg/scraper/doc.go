// Package scraper drives one extraction run: fetch a profile, page through
// its timeline, normalize and de-duplicate posts, then hand the result to a
// sink.
//
// The pieces can be used on their own. APIProfileFetcher and
// DocumentProfileFetcher return a *models.Profile or a typed error;
// PostFetcher pages until a stop condition and never returns an error,
// reporting how it stopped in PostsResult.State instead.
//
//	s, err := scraper.New(cfg, sink.NewWriterSink(os.Stdout, true), log)
//	if err != nil {
//	    return err
//	}
//	result, err := s.Run(ctx, "natgeo", 50)
package scraper
