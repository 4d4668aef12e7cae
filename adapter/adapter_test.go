package adapter

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/portsync/database"
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/events"
	"github.com/safing/portsync/model"
)

var testDBCounter uint32

type testEnv struct {
	adapter *Adapter
	widget  *model.Class
	violet  *model.Class
	db      *database.Controller
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	name := fmt.Sprintf("test-database-%d", atomic.AddUint32(&testDBCounter, 1))
	require.NoError(t, Configure(Configuration{Name: name}))
	t.Cleanup(func() {
		assert.NoError(t, Reset())
	})

	registry := model.NewRegistry()
	widget, err := registry.Register("Widget", "name", "part_number")
	require.NoError(t, err)
	violet, err := registry.Register("Violet", "owner")
	require.NoError(t, err)

	db, err := Database()
	require.NoError(t, err)

	return &testEnv{
		adapter: New(registry),
		widget:  widget,
		violet:  violet,
		db:      db,
	}
}

func (env *testEnv) put(t *testing.T, data string) {
	t.Helper()

	doc, err := attr.ParseJSON([]byte(data))
	require.NoError(t, err)
	_, err = env.db.Put(doc)
	require.NoError(t, err)
}

func goldenCog(t *testing.T, class *model.Class, id string) *model.Base {
	t.Helper()

	w := class.New()
	require.NoError(t, w.Set("name", attr.StringValue("Golden Cog")))
	require.NoError(t, w.Set("part_number", attr.IntValue(1337)))
	if id != "" {
		w.SetID(id)
	}
	return w
}

func stringAttr(r model.Record, name string) string {
	v, _ := r.Get(name)
	return v.String()
}

func intAttr(t *testing.T, r model.Record, name string) int64 {
	t.Helper()

	v, ok := r.Get(name)
	require.True(t, ok, "attribute %s not set on %s", name, spew.Sdump(r.AsPlainObject().Interface()))
	n, err := v.Int64()
	require.NoError(t, err)
	return n
}

// counter counts the events of an emitter.
type counter struct {
	counts map[string]int
	data   map[string]interface{}
}

type hookable interface {
	On(event, description string, fn events.HookFunc) *events.Hook
}

func count(target hookable) *counter {
	c := &counter{
		counts: make(map[string]int),
		data:   make(map[string]interface{}),
	}
	target.On(events.AnyEvent, "count events", func(event string, data interface{}) error {
		c.counts[event]++
		c.data[event] = data
		return nil
	})
	return c
}

func TestFind(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	env.put(t, `{"_id": "widget-1", "name": "Golden Cog", "part_number": 1337, "rbtype": "Widget"}`)

	var called model.Record
	r, err := env.adapter.Find("Widget", "widget-1", func(r model.Record) {
		called = r
	}).Wait()
	require.NoError(t, err)

	assert.Same(t, r, called)
	assert.Equal(t, "widget-1", r.ID())
	assert.Equal(t, "Golden Cog", stringAttr(r, "name"))
	assert.Equal(t, int64(1337), intAttr(t, r, "part_number"))
	assert.False(t, r.IsNew())
	assert.Equal(t, "Widget", r.Meta().Type)

	// The identity map returns the same instance.
	again, err := env.adapter.Find("Widget", "widget-1", nil).Wait()
	require.NoError(t, err)
	assert.Same(t, r, again)
	assert.Equal(t, 1, env.widget.Len())
}

func TestLoadUnderAnotherID(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	env.put(t, `{"_id": "widget-1", "name": "Golden Cog", "rbtype": "Widget"}`)
	env.put(t, `{"_id": "widget-2", "name": "Silver Cog", "rbtype": "Widget"}`)

	w := env.widget.New()
	require.NoError(t, env.adapter.Load(w, "widget-1", nil).Err())
	require.NoError(t, env.adapter.Load(w, "widget-2", nil).Err())

	assert.Equal(t, "widget-2", w.ID())
	assert.Equal(t, []model.Record{w}, env.widget.All())
	_, ok := env.widget.Lookup("widget-1")
	assert.False(t, ok)
	found, ok := env.widget.Lookup("widget-2")
	require.True(t, ok)
	assert.Same(t, model.Record(w), found)
}

func TestFindTypeMismatch(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	env.put(t, `{"_id": "widget-1", "name": "Golden Cog", "part_number": 1337, "rbtype": "OtherType"}`)
	classEvents := count(env.widget)

	called := false
	_, err := env.adapter.Find("Widget", "widget-1", func(model.Record) {
		called = true
	}).Wait()
	require.Error(t, err)

	assert.False(t, called)
	assert.Equal(t, 1, classEvents.counts[model.EventError])
	assert.Equal(t, "Wrong type for widget-1: expected Widget, received: OtherType", err.Error())
	assert.Regexp(t, "(?i)wrong type", fmt.Sprint(classEvents.data[model.EventError]))

	var adapterErr *Error
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, KindTypeMismatch, adapterErr.Kind)
	assert.Equal(t, 0, env.widget.Len())
}

func TestLoadTypeMismatchIsClassScoped(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	env.put(t, `{"_id": "violet-1", "owner": "Jessica", "rbtype": "Violet"}`)

	w := env.widget.New()
	classEvents := count(env.widget)
	recordEvents := count(w)

	err := env.adapter.Load(w, "violet-1", nil).Err()
	require.Error(t, err)
	assert.Equal(t, 1, classEvents.counts[model.EventError])
	assert.Equal(t, 0, recordEvents.counts[model.EventError])

	// Missing documents are reported on the record.
	err = env.adapter.Load(w, "widget-404", nil).Err()
	require.Error(t, err)
	assert.Equal(t, 1, recordEvents.counts[model.EventError])
	assert.Equal(t, "missing", err.Error())
}

func TestCreate(t *testing.T) { //nolint:paralleltest
	env := setup(t)

	t.Run("generates an id", func(t *testing.T) { //nolint:paralleltest
		w := goldenCog(t, env.widget, "")
		assert.True(t, w.IsNew())

		var called model.Record
		r, err := env.adapter.Create(w, func(r model.Record) {
			called = r
		}).Wait()
		require.NoError(t, err)

		assert.Same(t, w, called)
		assert.Same(t, w, r)
		assert.NotEmpty(t, w.ID())
		assert.False(t, w.IsNew())
		assert.Equal(t, "Widget", w.Meta().Type)
		assert.Regexp(t, "^1-[0-9a-f]{32}$", w.Meta().Rev)
	})

	t.Run("keeps a given id", func(t *testing.T) { //nolint:paralleltest
		w := goldenCog(t, env.widget, "widget-1")

		_, err := env.adapter.Create(w, nil).Wait()
		require.NoError(t, err)
		assert.Equal(t, "widget-1", w.ID())
		assert.False(t, w.IsNew())

		doc, err := env.db.Get("widget-1")
		require.NoError(t, err)
		assert.Equal(t, "Widget", doc.GetString("rbtype"))
		assert.Equal(t, "Golden Cog", doc.GetString("name"))
		assert.False(t, doc.Has("id"))
	})

	t.Run("emits events", func(t *testing.T) { //nolint:paralleltest
		w := goldenCog(t, env.widget, "")
		var order []string
		w.On(events.AnyEvent, "record order", func(event string, _ interface{}) error {
			order = append(order, event)
			return nil
		})
		classEvents := count(env.widget)

		require.NoError(t, env.adapter.Save(w, nil).Err())
		assert.Equal(t, []string{model.EventCreate, model.EventUpdate}, order)
		assert.Equal(t, 1, classEvents.counts[model.EventChange])
		assert.Len(t, classEvents.data[model.EventChange], env.widget.Len())
	})
}

func TestGoldenCog(t *testing.T) { //nolint:paralleltest
	env := setup(t)

	w0 := goldenCog(t, env.widget, "")
	require.NoError(t, env.adapter.Create(w0, nil).Err())
	assert.NotEmpty(t, w0.ID())
	assert.Equal(t, int64(1337), intAttr(t, w0, "part_number"))
	meta0 := w0.Meta()

	w1 := goldenCog(t, env.widget, w0.ID())
	recordEvents := count(w1)
	classEvents := count(env.widget)

	called := false
	err := env.adapter.Create(w1, func(model.Record) {
		called = true
	}).Err()
	require.Error(t, err)

	assert.False(t, called)
	assert.Regexp(t, "conflict", err.Error())
	assert.Equal(t, 1, recordEvents.counts[model.EventError])
	assert.Equal(t, 0, recordEvents.counts[model.EventUpdate])
	assert.Equal(t, 0, classEvents.counts[model.EventChange])
	assert.True(t, w1.IsNew())

	var adapterErr *Error
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, KindStoreConflict, adapterErr.Kind)
	assert.ErrorIs(t, err, database.ErrConflict)

	// The original record is unaffected.
	assert.Equal(t, meta0, w0.Meta())
	known, ok := env.widget.Lookup(w0.ID())
	require.True(t, ok)
	assert.Same(t, model.Record(w0), known)
}

func TestCallbackPanicKeepsResult(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	w := goldenCog(t, env.widget, "")
	recordEvents := count(w)

	r, err := env.adapter.Create(w, func(model.Record) {
		panic("callback failed")
	}).Wait()
	require.NoError(t, err)
	assert.Same(t, model.Record(w), r)
	assert.False(t, w.IsNew())
	assert.Equal(t, 1, recordEvents.counts[model.EventCreate])

	_, err = env.db.Get(w.ID())
	assert.NoError(t, err)
}

// lockCounter counts how often the record lock is taken.
type lockCounter struct {
	*model.Base
	locks int32
}

func (l *lockCounter) Lock() {
	atomic.AddInt32(&l.locks, 1)
	l.Base.Lock()
}

func TestOperationsTakeRecordLock(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	w := &lockCounter{Base: goldenCog(t, env.widget, "")}

	require.NoError(t, env.adapter.Create(w, nil).Err())
	assert.EqualValues(t, 2, atomic.LoadInt32(&w.locks), "create")

	require.NoError(t, env.adapter.Update(w, nil).Err())
	assert.EqualValues(t, 4, atomic.LoadInt32(&w.locks), "update")

	require.NoError(t, env.adapter.Delete(w, nil).Err())
	assert.EqualValues(t, 6, atomic.LoadInt32(&w.locks), "delete")

	// A held lock delays the snapshot of the next operation.
	w.Lock()
	f := env.adapter.Create(w, nil)
	select {
	case <-f.Done():
		t.Fatal("create finished while the record was locked")
	case <-time.After(50 * time.Millisecond):
	}
	w.Unlock()
	require.NoError(t, f.Err())
}

func TestUpdate(t *testing.T) { //nolint:paralleltest
	env := setup(t)

	w := goldenCog(t, env.widget, "")
	require.NoError(t, env.adapter.Save(w, nil).Err())
	before := w.Meta()

	require.NoError(t, w.Set("name", attr.StringValue("Magic Cog")))
	recordEvents := count(w)
	classEvents := count(env.widget)

	r, err := env.adapter.Save(w, nil).Wait()
	require.NoError(t, err)
	assert.Same(t, model.Record(w), r)

	after := w.Meta()
	assert.NotEqual(t, before.Rev, after.Rev)
	assert.Regexp(t, "^2-", after.Rev)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Type, after.Type)
	assert.Equal(t, "Magic Cog", stringAttr(w, "name"))
	assert.Equal(t, 1, recordEvents.counts[model.EventUpdate])
	assert.Equal(t, 0, recordEvents.counts[model.EventCreate])
	assert.Equal(t, 1, classEvents.counts[model.EventChange])

	doc, err := env.db.Get(w.ID())
	require.NoError(t, err)
	assert.Equal(t, "Magic Cog", doc.GetString("name"))
	assert.Equal(t, after.Rev, doc.GetString("_rev"))
}

func TestUpdateConflict(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	env.put(t, `{"_id": "widget-1", "name": "Golden Cog", "part_number": 1337, "rbtype": "Widget"}`)

	w0 := env.widget.New()
	w1 := env.widget.New()
	require.NoError(t, env.adapter.Load(w0, "widget-1", nil).Err())
	require.NoError(t, env.adapter.Load(w1, "widget-1", nil).Err())

	require.NoError(t, w0.Set("name", attr.StringValue("First")))
	require.NoError(t, env.adapter.Update(w0, nil).Err())

	require.NoError(t, w1.Set("name", attr.StringValue("Second")))
	recordEvents := count(w1)
	err := env.adapter.Update(w1, nil).Err()
	require.Error(t, err)
	assert.Equal(t, "Document update conflict", err.Error())
	assert.Equal(t, 1, recordEvents.counts[model.EventError])

	// In-memory attributes are not rolled back.
	assert.Equal(t, "Second", stringAttr(w1, "name"))
	doc, err := env.db.Get("widget-1")
	require.NoError(t, err)
	assert.Equal(t, "First", doc.GetString("name"))
}

func TestUpdateNewRecord(t *testing.T) { //nolint:paralleltest
	env := setup(t)

	w := goldenCog(t, env.widget, "")
	err := env.adapter.Update(w, nil).Err()
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.ErrorIs(t, env.adapter.Delete(w, nil).Err(), ErrNotPersisted)
}

func TestDelete(t *testing.T) { //nolint:paralleltest
	env := setup(t)

	w := goldenCog(t, env.widget, "widget-1")
	require.NoError(t, env.adapter.Save(w, nil).Err())
	recordEvents := count(w)
	classEvents := count(env.widget)

	var called model.Record
	require.NoError(t, env.adapter.Delete(w, func(r model.Record) {
		called = r
	}).Err())
	assert.Same(t, model.Record(w), called)
	assert.True(t, w.IsNew())
	assert.Equal(t, "widget-1", w.ID())
	assert.Equal(t, 1, recordEvents.counts[model.EventDestroy])
	assert.Equal(t, 1, classEvents.counts[model.EventChange])
	assert.Equal(t, 0, env.widget.Len())

	_, err := env.db.Get("widget-1")
	assert.Regexp(t, "missing", err.Error())

	_, err = env.adapter.Find("Widget", "widget-1", nil).Wait()
	var adapterErr *Error
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, KindNotFound, adapterErr.Kind)

	// A deleted record can be created again.
	require.NoError(t, env.adapter.Save(w, nil).Err())
	assert.Regexp(t, "^3-", w.Meta().Rev)
}

func TestFetch(t *testing.T) { //nolint:paralleltest
	env := setup(t)
	classEvents := count(env.widget)

	// No matches.
	var fetched []model.Record
	records, err := env.adapter.Fetch("Widget", func(records []model.Record) {
		fetched = records
	}).Wait()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, fetched)
	assert.Equal(t, 1, classEvents.counts[model.EventRefresh])

	v := env.violet.New()
	require.NoError(t, v.Set("owner", attr.StringValue("Jessica")))
	require.NoError(t, env.adapter.Save(v, nil).Err())
	w := goldenCog(t, env.widget, "")
	require.NoError(t, env.adapter.Save(w, nil).Err())
	env.put(t, `{"_id": "widget-raw", "name": "Raw Cog", "rbtype": "Widget"}`)

	records, err = env.adapter.Fetch("Widget", nil).Wait()
	require.NoError(t, err)
	require.Len(t, records, 2, spew.Sdump(records))
	for _, r := range records {
		assert.Same(t, env.widget, r.Class())
	}
	assert.Contains(t, records, model.Record(w))
	assert.Equal(t, 2, classEvents.counts[model.EventRefresh])
	assert.Equal(t, 0, classEvents.counts[model.EventError])
	assert.Equal(t, 2, env.widget.Len())

	violets, err := env.adapter.Fetch("Violet", nil).Wait()
	require.NoError(t, err)
	require.Len(t, violets, 1)
	assert.Equal(t, "Jessica", stringAttr(violets[0], "owner"))
}

func TestUnknownClass(t *testing.T) { //nolint:paralleltest
	env := setup(t)

	_, err := env.adapter.Find("Gadget", "gadget-1", nil).Wait()
	assert.ErrorIs(t, err, model.ErrUnknownClass)
	_, err = env.adapter.Fetch("Gadget", nil).Wait()
	assert.ErrorIs(t, err, model.ErrUnknownClass)
}

func TestNotConfigured(t *testing.T) { //nolint:paralleltest
	require.NoError(t, Reset())
	assert.False(t, Configured())

	registry := model.NewRegistry()
	widget, err := registry.Register("Widget", "name")
	require.NoError(t, err)
	a := New(registry)

	assert.PanicsWithValue(t, ErrNotConfigured, func() {
		a.Find("Widget", "widget-1", nil)
	})
	assert.PanicsWithValue(t, ErrNotConfigured, func() {
		a.Save(widget.New(), nil)
	})
	_, err = Database()
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, Configure(Configuration{}), ErrMissingName)
}

func TestReconfigure(t *testing.T) { //nolint:paralleltest
	defer func() {
		assert.NoError(t, Reset())
	}()

	require.NoError(t, Configure(Configuration{Name: "reconfigure-a"}))
	first, err := Database()
	require.NoError(t, err)
	same, err := Database()
	require.NoError(t, err)
	assert.Same(t, first, same)
	assert.Equal(t, "reconfigure-a", first.Name())
	assert.Equal(t, InMemoryStorageType, first.StorageType())

	require.NoError(t, Configure(Configuration{Name: "reconfigure-b", StorageType: "bbolt", Location: t.TempDir()}))
	second, err := Database()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "reconfigure-b", second.Name())
	assert.Equal(t, "bbolt", second.StorageType())
	assert.Equal(t, "reconfigure-b", GetConfiguration().Name)

	// The previous handle was shut down.
	_, err = first.Get("anything")
	assert.ErrorIs(t, err, database.ErrShuttingDown)
}

func TestConfigureFromOptions(t *testing.T) { //nolint:paralleltest
	defer func() {
		assert.NoError(t, Reset())
	}()

	require.NoError(t, RegisterOptions())
	require.NoError(t, RegisterOptions())
	require.NoError(t, ConfigureFromOptions())

	cfg := GetConfiguration()
	require.NotNil(t, cfg)
	assert.Equal(t, "portsync", cfg.Name)
	assert.Equal(t, InMemoryStorageType, cfg.StorageType)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
}
