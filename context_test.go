package statechart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type orderContext struct {
	Total int
	Items int
}

func TestUpdateContext_WholeFunctionMerges(t *testing.T) {
	ctx := orderContext{Total: 10, Items: 1}
	assigns := []Assigner[orderContext]{
		AssignWhole(func(c orderContext, e Event) orderContext {
			c.Total += 5
			return c
		}),
	}
	next, err := UpdateContext(ctx, Event{Type: "ADD"}, assigns)
	assert.NoError(t, err)
	assert.Equal(t, 15, next.Total)
	assert.Equal(t, 1, next.Items)
}

func TestUpdateContext_PerFieldUpdaters(t *testing.T) {
	ctx := orderContext{Total: 10, Items: 1}
	assigns := []Assigner[orderContext]{
		AssignFields(map[string]AssignFieldFunc[orderContext]{
			"Items": func(c orderContext, e Event) any { return c.Items + 1 },
		}),
	}
	next, err := UpdateContext(ctx, Event{Type: "ADD"}, assigns)
	assert.NoError(t, err)
	assert.Equal(t, 2, next.Items)
	assert.Equal(t, 10, next.Total)
}

func TestUpdateContext_FoldsLeftToRightOverRunningAccumulator(t *testing.T) {
	ctx := orderContext{Items: 0}
	assigns := []Assigner[orderContext]{
		AssignFields(map[string]AssignFieldFunc[orderContext]{
			"Items": func(c orderContext, e Event) any { return c.Items + 1 },
		}),
		AssignFields(map[string]AssignFieldFunc[orderContext]{
			"Items": func(c orderContext, e Event) any { return c.Items * 10 },
		}),
	}
	next, err := UpdateContext(ctx, Event{Type: "ADD"}, assigns)
	assert.NoError(t, err)
	assert.Equal(t, 10, next.Items)
}

func TestUpdateContext_PanicBecomesExecutionError(t *testing.T) {
	ctx := orderContext{}
	assigns := []Assigner[orderContext]{
		AssignWhole(func(c orderContext, e Event) orderContext {
			panic("boom")
		}),
	}
	_, err := UpdateContext(ctx, Event{Type: "ADD"}, assigns)
	assert.Error(t, err)
	var engineErr *Error
	assert.ErrorAs(t, err, &engineErr)
	assert.Equal(t, ErrorKindExecution, engineErr.Kind)
}

func TestUpdateContext_UnknownFieldIsExecutionError(t *testing.T) {
	ctx := orderContext{}
	assigns := []Assigner[orderContext]{
		AssignFields(map[string]AssignFieldFunc[orderContext]{
			"Nope": func(c orderContext, e Event) any { return 1 },
		}),
	}
	_, err := UpdateContext(ctx, Event{Type: "ADD"}, assigns)
	assert.Error(t, err)
	var engineErr *Error
	assert.ErrorAs(t, err, &engineErr)
	assert.Equal(t, ErrorKindExecution, engineErr.Kind)
}
