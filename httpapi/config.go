package httpapi

// Config defines the inspection API settings. An empty Addr disables it.
type Config struct {
	Addr     string
	BasePath string
	// HistorySize bounds the events kept for Last-Event-ID replay.
	HistorySize int
}
