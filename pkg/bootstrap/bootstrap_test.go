package bootstrap

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

func testRuntime() (*Runtime, *int) {
	code := -1
	return &Runtime{
		Service: "test",
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		exit:    func(c int) { code = c },
	}, &code
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	rt, _ := testRuntime()
	var order []string
	for _, name := range []string{"database", "redis", "pubsub"} {
		rt.OnClose(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, rt.Close(context.Background()))
	assert.Equal(t, []string{"pubsub", "redis", "database"}, order)

	require.NoError(t, rt.Close(context.Background()), "second close is a no-op")
	assert.Len(t, order, 3)
}

func TestCloseCollectsEveryFailure(t *testing.T) {
	rt, _ := testRuntime()
	rt.OnClose("a", func() error { return errors.New("a failed") })
	rt.OnClose("b", func() error { return nil })
	rt.OnClose("c", func() error { return errors.New("c failed") })

	err := rt.Close(context.Background())

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "close a")
	assert.ErrorContains(t, err, "close c")
}

func TestMustClosesBeforeExit(t *testing.T) {
	rt, code := testRuntime()
	closed := false
	rt.OnClose("database", func() error {
		closed = true
		return nil
	})

	rt.Must(context.Background(), "redis", nil)
	assert.Equal(t, -1, *code)
	assert.False(t, closed)

	rt.Must(context.Background(), "redis", errors.New("dial tcp: refused"))
	assert.Equal(t, 1, *code)
	assert.True(t, closed)
}
