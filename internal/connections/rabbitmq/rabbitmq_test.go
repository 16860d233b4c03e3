package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"print-dispatcher/internal/common/config"
)

func TestURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MQ
		want string
	}{
		{"default vhost", config.MQ{Host: "mq", Port: 5672, User: "guest", Pass: "guest"}, "amqp://guest:guest@mq:5672/"},
		{"named vhost", config.MQ{Host: "mq", Port: 5672, User: "u", Pass: "p", VHost: "pos"}, "amqp://u:p@mq:5672/pos"},
		{"tls", config.MQ{Host: "mq", Port: 5671, User: "u", Pass: "p@ss", UseTLS: true}, "amqps://u:p%40ss@mq:5671/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, URL(tc.cfg))
		})
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(), ErrClosed)
	c.Close()
}
