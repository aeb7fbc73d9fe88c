// Package release drives a release across every configured platform.
//
// One run pulls the published tree from the mirror, builds each platform
// in order, and pushes the tree back only if every platform succeeded. A
// failed platform stops the run; the pulled tree is discarded, so the
// mirror never shows a mix of old and new platforms.
//
// Platforms differ in where their commands execute. macOS runs on the
// host, Linux in a container, and Windows on a virtual machine that only
// accepts whole scripts. The [Plan] for a platform names its pipeline,
// its build commands, and which outputs go where; the [Orchestrator]
// executes it against the [Backends].
//
//	o := release.New(cfg, release.Deps{
//		Credentials: creds,
//		Source:      &source.Git{URL: cfg.Source.URL},
//		Channel:     channel,
//		Backends:    release.NewBackends(cfg),
//	})
//	if err := o.Start(ctx); err != nil {
//		return err
//	}
//
// Only one run is active per [Orchestrator]. Start returns immediately
// while another run is in progress.
package release
