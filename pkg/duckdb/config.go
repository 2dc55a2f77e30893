package duck

type Config struct {
	Path string
}

// ToDBConnectionURI returns the DSN handed to the duckdb driver.
func (c Config) ToDBConnectionURI() string {
	return c.Path
}
