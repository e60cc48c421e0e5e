package supervisor

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusExhausted = "EXHAUSTED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

type Mission struct {
	ID            string
	Name          string
	InitialPrompt string
	Goal          string
	MaxIterations int
	State         string
}
