package publisher

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/satfire/firewatch/internal/types"
)

const defaultDialTimeout = 5 * time.Second

// TCPPublisher sends each notice as one line of JSON to a remote endpoint.
// A fresh connection is dialed per notice; alarms are rare enough that
// keeping a long-lived connection healthy is not worth the bookkeeping.
type TCPPublisher struct {
	address string
	timeout time.Duration
}

var _ Publisher = (*TCPPublisher)(nil)

func NewTCP(address string) *TCPPublisher {
	return &TCPPublisher{
		address: address,
		timeout: defaultDialTimeout,
	}
}

func (p *TCPPublisher) Publish(n types.AlarmNotice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("could not marshal notice %v: %v", n.UID, err)
	}
	conn, err := net.DialTimeout("tcp", p.address, p.timeout)
	if err != nil {
		return fmt.Errorf("could not connect to notice endpoint %v: %v", p.address, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return fmt.Errorf("could not set write deadline: %v", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("could not send notice %v: %v", n.UID, err)
	}
	return nil
}

func (p *TCPPublisher) Close() error {
	return nil
}
