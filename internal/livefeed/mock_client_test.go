package livefeed_test

import (
	"grievance/backend/internal/notify"
	"sync/atomic"
)

type MockClient struct {
	userID      uint
	RecvChannel chan notify.Message
	closed      atomic.Bool
}

func newMockClient(userID uint, buffer int) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan notify.Message, buffer),
	}
}

func (c *MockClient) GetUserID() uint {
	return c.userID
}

func (c *MockClient) GetSendChannel() chan<- notify.Message {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Store(true)
}
