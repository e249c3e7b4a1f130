package manifest

var (
	_ Backend = (*LocalBackend)(nil)
	_ Backend = (*PostgresBackend)(nil)
)
