package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dotcommander/ocn/internal/models"
)

var testCtx = Context{ //nolint:gochecknoglobals // shared fixture
	Directory:   "/home/dev/src/test",
	ProjectName: "test",
	PID:         1234,
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func adapt(t *testing.T, a *Adapter, eventType string, props map[string]any) *models.DomainEvent {
	t.Helper()
	return a.Adapt(RawEvent{Type: eventType, Properties: props}, testCtx)
}

func TestAdapt_MappingTable(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		props map[string]any
		want  models.Status
	}{
		{"session idle", "session.idle", map[string]any{"sessionID": "ses_1"}, models.StatusIdle},
		{"session error", "session.error", map[string]any{"sessionID": "ses_1"}, models.StatusError},
		{"permission updated", "permission.updated", map[string]any{"title": "Run?"}, models.StatusPrompting},
		{"permission asked", "permission.asked", map[string]any{"permission": "bash"}, models.StatusPrompting},
		{"permission replied", "permission.replied", map[string]any{"response": "allow"}, models.StatusBusy},
		{"question asked", "question.asked", map[string]any{}, models.StatusPrompting},
		{"question replied", "question.replied", map[string]any{}, models.StatusBusy},
		{"question rejected", "question.rejected", map[string]any{}, models.StatusBusy},
		{"status busy", "session.status", map[string]any{"status": map[string]any{"type": "busy"}}, models.StatusBusy},
		{"status idle", "session.status", map[string]any{"status": map[string]any{"type": "idle"}}, models.StatusIdle},
		{"status retry", "session.status", map[string]any{"status": map[string]any{"type": "retry"}}, models.StatusBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := adapt(t, New(), tt.typ, tt.props)
			require.NotNil(t, ev)
			require.Equal(t, tt.want, ev.Status)
		})
	}
}

func TestAdapt_Metadata(t *testing.T) {
	a := New(WithClock(fixedClock))

	ev := adapt(t, a, "session.idle", map[string]any{"sessionID": "ses_1"})
	require.NotNil(t, ev)
	require.Equal(t, models.SourcePlugin, ev.Source)
	require.Equal(t, "/home/dev/src/test", ev.Directory)
	require.Equal(t, "test", ev.Project)
	require.Equal(t, 1234, ev.PID)
	require.Equal(t, "ses_1", ev.SessionID)
	require.Equal(t, fixedClock(), ev.Timestamp)
	require.False(t, ev.IsSubtask)
}

func TestAdapt_SourceFromContext(t *testing.T) {
	ctx := testCtx
	ctx.Source = models.SourceStream

	ev := New().Adapt(RawEvent{Type: "session.idle", Properties: map[string]any{}}, ctx)
	require.NotNil(t, ev)
	require.Equal(t, models.SourceStream, ev.Source)
}

func TestAdapt_SessionErrorMessage(t *testing.T) {
	a := New()

	ev := adapt(t, a, "session.error", map[string]any{"error": map[string]any{"message": "boom"}})
	require.Equal(t, "boom", ev.ErrorMessage)

	ev = adapt(t, a, "session.error", map[string]any{
		"error": map[string]any{"name": "APIError", "data": map[string]any{"message": "rate limited"}},
	})
	require.Equal(t, "rate limited", ev.ErrorMessage)

	// Top-level message wins over nested.
	ev = adapt(t, a, "session.error", map[string]any{
		"error": map[string]any{"message": "top", "data": map[string]any{"message": "nested"}},
	})
	require.Equal(t, "top", ev.ErrorMessage)

	ev = adapt(t, a, "session.error", map[string]any{"error": "not an object"})
	require.NotNil(t, ev)
	require.Empty(t, ev.ErrorMessage)
}

func TestAdapt_PermissionTitles(t *testing.T) {
	a := New()

	ev := adapt(t, a, "permission.updated", map[string]any{"title": "Run bash command?", "id": "perm_1"})
	require.Equal(t, "Run bash command?", ev.PermissionTitle)

	ev = adapt(t, a, "permission.asked", map[string]any{"title": "Edit file?", "permission": "edit"})
	require.Equal(t, "Edit file?", ev.PermissionTitle)

	ev = adapt(t, a, "permission.asked", map[string]any{"permission": "bash"})
	require.Equal(t, "bash", ev.PermissionTitle)

	ev = adapt(t, a, "permission.updated", map[string]any{"title": 42})
	require.NotNil(t, ev)
	require.Empty(t, ev.PermissionTitle)
}

func TestAdapt_QuestionTitle(t *testing.T) {
	a := New()

	ev := adapt(t, a, "question.asked", map[string]any{
		"questions": []any{
			map[string]any{"header": "Pick a branch", "question": "Which one?"},
			map[string]any{"header": "Second"},
		},
	})
	require.Equal(t, "Pick a branch", ev.QuestionTitle)

	ev = adapt(t, a, "question.asked", map[string]any{"questions": []any{}})
	require.NotNil(t, ev)
	require.Empty(t, ev.QuestionTitle)

	ev = adapt(t, a, "question.asked", map[string]any{"questions": "nope"})
	require.NotNil(t, ev)
	require.Empty(t, ev.QuestionTitle)
}

func TestAdapt_ReturnsNil(t *testing.T) {
	a := New()

	require.Nil(t, adapt(t, a, "config.updated", map[string]any{}))
	require.Nil(t, adapt(t, a, "server.instance.disposed", map[string]any{}))
	require.Nil(t, adapt(t, a, "session.status", map[string]any{"status": map[string]any{"type": "unknown"}}))
	require.Nil(t, adapt(t, a, "session.status", map[string]any{}))
	require.Nil(t, adapt(t, a, "session.created", map[string]any{"info": map[string]any{"id": "ses_1"}}))
}

func TestAdapt_NilPropertiesDoNotPanic(t *testing.T) {
	a := New()
	ev := a.Adapt(RawEvent{Type: "session.error"}, testCtx)
	require.NotNil(t, ev)
	require.Empty(t, ev.SessionID)
	require.Nil(t, a.Adapt(RawEvent{Type: "session.created"}, testCtx))
}

func TestAdapt_SubtaskTagging(t *testing.T) {
	a := New()

	created := adapt(t, a, "session.created", map[string]any{
		"info": map[string]any{"id": "ses_child", "parentID": "ses_parent"},
	})
	require.Nil(t, created)

	ev := adapt(t, a, "session.idle", map[string]any{"sessionID": "ses_child"})
	require.NotNil(t, ev)
	require.True(t, ev.IsSubtask)

	parent := adapt(t, a, "session.idle", map[string]any{"sessionID": "ses_parent"})
	require.False(t, parent.IsSubtask)
}

func TestAdapt_NoParentNoSubtask(t *testing.T) {
	a := New()

	adapt(t, a, "session.created", map[string]any{"info": map[string]any{"id": "ses_child"}})
	adapt(t, a, "session.created", map[string]any{"info": map[string]any{"id": "ses_other", "parentID": ""}})

	ev := adapt(t, a, "session.idle", map[string]any{"sessionID": "ses_child"})
	require.NotNil(t, ev)
	require.False(t, ev.IsSubtask)
	require.Zero(t, a.Registry().Len())
}

func TestAdapt_NoRetroactiveTagging(t *testing.T) {
	a := New()

	before := adapt(t, a, "session.status", map[string]any{
		"sessionID": "ses_child", "status": map[string]any{"type": "busy"},
	})
	adapt(t, a, "session.created", map[string]any{
		"info": map[string]any{"id": "ses_child", "parentID": "ses_parent"},
	})
	after := adapt(t, a, "session.idle", map[string]any{"sessionID": "ses_child"})

	require.False(t, before.IsSubtask)
	require.True(t, after.IsSubtask)
}

func TestAdapt_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	adapt(t, a, "session.created", map[string]any{
		"info": map[string]any{"id": "ses_child", "parentID": "ses_parent"},
	})

	require.True(t, adapt(t, a, "session.idle", map[string]any{"sessionID": "ses_child"}).IsSubtask)
	require.False(t, adapt(t, b, "session.idle", map[string]any{"sessionID": "ses_child"}).IsSubtask)
}

func TestAdapt_UnknownTypesProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.String().Filter(func(s string) bool {
			return Classify(s) == KindUnrecognized
		}).Draw(rt, "type")
		key := rapid.StringMatching(`[a-zA-Z]{1,8}`).Draw(rt, "key")
		val := rapid.String().Draw(rt, "val")

		ev := New().Adapt(RawEvent{Type: typ, Properties: map[string]any{key: val}}, testCtx)
		if ev != nil {
			rt.Fatalf("expected nil for unrecognized type %q, got %+v", typ, ev)
		}
	})
}

func TestAdapt_StatusAlwaysValidProperty(t *testing.T) {
	types := make([]string, 0, len(kindByType))
	for name := range kindByType {
		types = append(types, name)
	}

	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.SampledFrom(types).Draw(rt, "type")
		statusType := rapid.SampledFrom([]string{"busy", "idle", "retry", "other", ""}).Draw(rt, "statusType")
		props := map[string]any{
			"sessionID": rapid.String().Draw(rt, "sessionID"),
			"status":    map[string]any{"type": statusType},
		}

		ev := New().Adapt(RawEvent{Type: typ, Properties: props}, testCtx)
		if ev != nil && !ev.Status.Valid() {
			rt.Fatalf("invalid status %q for %s", ev.Status, typ)
		}
	})
}

func TestDecodeRawEvent(t *testing.T) {
	ev, err := DecodeRawEvent([]byte(`{"type":"session.idle","properties":{"sessionID":"ses_1"}}`))
	require.NoError(t, err)
	require.Equal(t, "session.idle", ev.Type)
	require.Equal(t, "ses_1", ev.Properties["sessionID"])

	ev, err = DecodeRawEvent([]byte(`{"type":7,"properties":[1,2]}`))
	require.NoError(t, err)
	require.Empty(t, ev.Type)
	require.NotNil(t, ev.Properties)
	require.Empty(t, ev.Properties)

	_, err = DecodeRawEvent([]byte(`not json`))
	require.Error(t, err)

	_, err = DecodeRawEvent([]byte(`null`))
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	require.Equal(t, KindSessionCreated, Classify("session.created"))
	require.Equal(t, KindUnrecognized, Classify("message.updated"))
	require.Equal(t, "question.rejected", KindQuestionRejected.String())
	require.Equal(t, "unrecognized", KindUnrecognized.String())
}
