//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package hub

type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type Metrics interface {
	SocketOpened()
	SocketClosed()
	Frame(direction, event string)
}
