package rabbitmq

import (
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDeclarer struct {
	mock.Mock
}

func (m *MockDeclarer) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *MockDeclarer) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	a := m.Called(name, durable)
	return amqp.Queue{Name: name}, a.Error(0)
}

func (m *MockDeclarer) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return m.Called(name, key, exchange).Error(0)
}

func TestGetNotificationQueues(t *testing.T) {
	queues := GetNotificationQueues()
	require.NotEmpty(t, queues)
	assert.Equal(t, "notifications.expiring", queues[0].QueueName)
	assert.Equal(t, RoutingKeyExpiring, queues[0].RoutingKey)

	seen := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
		seen[q.QueueName] = true
	}
}

func TestDeclare(t *testing.T) {
	d := new(MockDeclarer)
	d.On("ExchangeDeclare", NotificationsExchange, "direct", true).Return(nil)
	d.On("QueueDeclare", "notifications.expiring", true).Return(nil)
	d.On("QueueBind", "notifications.expiring", RoutingKeyExpiring, NotificationsExchange).Return(nil)

	require.NoError(t, Declare(d, Notifications(), GetNotificationQueues()))
	d.AssertExpectations(t)
}

func TestDeclare_EventsHasNoQueues(t *testing.T) {
	d := new(MockDeclarer)
	d.On("ExchangeDeclare", EventsExchange, "topic", true).Return(nil)

	require.NoError(t, Declare(d, Events(), nil))
	d.AssertNotCalled(t, "QueueDeclare", mock.Anything, mock.Anything)
}

func TestDeclare_Errors(t *testing.T) {
	d := new(MockDeclarer)
	d.On("ExchangeDeclare", NotificationsExchange, "direct", true).Return(nil)
	d.On("QueueDeclare", "notifications.expiring", true).Return(errors.New("access refused"))

	err := Declare(d, Notifications(), GetNotificationQueues())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifications.expiring")
}
