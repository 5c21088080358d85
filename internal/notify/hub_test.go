package notify_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gwon-omega/eduflow-server/internal/notify"
	"github.com/stretchr/testify/assert"
)

func TestRegisterAndLookup(t *testing.T) {
	hub := notify.NewHub()

	hub.Register("user-1", "conn-a")
	hub.Register("user-1", "conn-b")
	hub.Register("user-2", "conn-c")

	assert.ElementsMatch(t, []string{"conn-a", "conn-b"}, hub.ConnectionsFor("user-1"))
	assert.ElementsMatch(t, []string{"conn-c"}, hub.ConnectionsFor("user-2"))
	assert.Empty(t, hub.ConnectionsFor("user-3"))
}

func TestUnregister(t *testing.T) {
	hub := notify.NewHub()
	hub.Register("user-1", "conn-a")
	hub.Register("user-1", "conn-b")

	hub.Unregister("user-1", "conn-a")
	assert.ElementsMatch(t, []string{"conn-b"}, hub.ConnectionsFor("user-1"))

	// Removing the last connection clears the user entirely.
	hub.Unregister("user-1", "conn-b")
	assert.Empty(t, hub.ConnectionsFor("user-1"))

	// Unregistering an unknown connection is a no-op.
	hub.Unregister("user-1", "conn-z")
	hub.Unregister("user-9", "conn-a")
}

func TestReset(t *testing.T) {
	hub := notify.NewHub()
	hub.Register("user-1", "conn-a")
	hub.Register("user-2", "conn-b")

	hub.Reset()
	assert.Empty(t, hub.ConnectionsFor("user-1"))
	assert.Empty(t, hub.ConnectionsFor("user-2"))
}

func TestConcurrentAccess(t *testing.T) {
	hub := notify.NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", n%5)
			conn := fmt.Sprintf("conn-%d", n)
			hub.Register(user, conn)
			hub.ConnectionsFor(user)
			hub.Unregister(user, conn)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		assert.Empty(t, hub.ConnectionsFor(fmt.Sprintf("user-%d", i)))
	}
}
