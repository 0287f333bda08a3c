package services

type Broadcaster interface {
	BroadcastBalance(userID string, balance float64)
	BroadcastRoundUpdate(userID string, update interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastBalance(string, float64)         {}
func (nopBroadcaster) BroadcastRoundUpdate(string, interface{}) {}
