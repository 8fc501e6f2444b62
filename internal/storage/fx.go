package storage

import "go.uber.org/fx"

var Module = fx.Module("storage",
	fx.Provide(
		NewS3Store,
		func(s *S3Store) ObjectStore { return s },
	),
)
