package flow

import "fmt"

// Connection is a directed edge inside one branch-group flow, joining one
// step's outbound slot to another step's inbound set. ID distinguishes
// which outbound slot a decision step's connection occupies; plain work
// and filtered steps ignore it (they have only one slot).
type Connection struct {
	ID   int
	From Step
	To   Step
}

// outboundAttacher is implemented by every step kind that exposes at least
// one outbound slot. Plain/filtered steps accept any conn; decision steps
// key by conn.ID.
type outboundAttacher interface {
	AttachOutbound(conn *Connection) error
}

// outboundDetacher is the single-slot counterpart to outboundAttacher.
type outboundDetacher interface {
	DetachOutbound()
}

// decisionDetacher is satisfied by decision steps, whose outbound table is
// keyed by connection ID rather than holding a single slot.
type decisionDetacher interface {
	DetachOutbound(connID int)
}

// Connect creates and attaches a connection from -> to under id. Both
// endpoints are validated and updated only once attachment to from
// succeeds; if from rejects the connection, to is left untouched.
func Connect(id int, from, to Step) (*Connection, error) {
	attacher, ok := from.(outboundAttacher)
	if !ok {
		return nil, fmt.Errorf("flow: step %d does not accept outbound connections", from.ID())
	}
	conn := &Connection{ID: id, From: from, To: to}
	if err := attacher.AttachOutbound(conn); err != nil {
		return nil, err
	}
	to.inboundSet().addInbound(conn)
	return conn, nil
}

// Disconnect removes conn from both its endpoints.
func Disconnect(conn *Connection) {
	switch from := conn.From.(type) {
	case decisionDetacher:
		from.DetachOutbound(conn.ID)
	case outboundDetacher:
		from.DetachOutbound()
	}
	conn.To.inboundSet().removeInbound(conn)
}
