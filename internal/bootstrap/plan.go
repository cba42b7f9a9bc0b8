package bootstrap

import "context"

// Steps supplies the work behind each stage. Plans pick the subset they need.
type Steps struct {
	Pinger        Pinger
	Wait          WaitConfig
	Migrate       func(ctx context.Context) error
	CollectStatic func(ctx context.Context) error
	Launch        func(ctx context.Context) error
	Reporter      Reporter
}

// WebPlan waits for the database, migrates, collects static assets and launches the server.
func WebPlan(s Steps) []Stage {
	return []Stage{
		NewWaitStage(s.Pinger, s.Wait, s.Reporter),
		NewStage(StageMigrate, KindMigrationFailed, s.Migrate),
		NewStage(StageCollectStatic, KindStaticCollectionFailed, s.CollectStatic),
		NewStage(StageLaunch, KindLaunchFailed, s.Launch),
	}
}

// WorkerPlan waits for the database and launches the job consumer.
// Schema and static assets belong to the web process only.
func WorkerPlan(s Steps) []Stage {
	return []Stage{
		NewWaitStage(s.Pinger, s.Wait, s.Reporter),
		NewStage(StageLaunch, KindLaunchFailed, s.Launch),
	}
}
