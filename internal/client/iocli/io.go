package iocli

//go:generate moq -out io_mock.go . IO

// IO abstracts the operator console
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	Interactive() bool
	Write(p []byte) (n int, err error)
}
