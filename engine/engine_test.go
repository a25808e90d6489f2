package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/backoff"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/engine"
	"github.com/xraph/crontab/job"
	"github.com/xraph/crontab/store"
	"github.com/xraph/crontab/store/memory"
	redisstore "github.com/xraph/crontab/store/redis"
)

const base int64 = 1_700_000_000

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

type clock struct {
	mu  sync.Mutex
	now int64
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *clock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = unix
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	eng   *engine.Engine
	store *memory.Store
	clock *clock
	logs  *syncBuffer
}

func newHarness(t *testing.T, opts ...engine.Option) *harness {
	t.Helper()
	h := &harness{
		store: memory.New(),
		clock: &clock{now: base},
		logs:  &syncBuffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	all := append([]engine.Option{
		engine.WithClock(h.clock.Now),
		engine.WithLogger(logger),
	}, opts...)

	eng, err := engine.New(h.store, all...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	h.eng = eng
	return h
}

func (h *harness) submit(t *testing.T, s job.Submission) {
	t.Helper()
	if err := h.eng.Submit(context.Background(), s); err != nil {
		t.Fatalf("Submit(%s): %v", s.Name, err)
	}
}

func (h *harness) tick(t *testing.T) int {
	t.Helper()
	n, err := h.eng.Ticker().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("ticker: %v", err)
	}
	return n
}

func (h *harness) consume(t *testing.T) int {
	t.Helper()
	n, err := h.eng.Consumer().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("consumer: %v", err)
	}
	return n
}

func (h *harness) popQueued(t *testing.T, queue string) *job.Job {
	t.Helper()
	data, ok, err := h.store.PopReady(context.Background(), queue)
	if err != nil || !ok {
		t.Fatalf("PopReady(%s) = (%v, %v)", queue, ok, err)
	}
	j, err := job.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func (h *harness) popDelayed(t *testing.T, due int64) *job.Job {
	t.Helper()
	data, ok, err := h.store.PopDelayed(context.Background(), due)
	if err != nil || !ok {
		t.Fatalf("PopDelayed(%d) = (%v, %v)", due, ok, err)
	}
	j, err := job.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func (h *harness) index(t *testing.T) []int64 {
	t.Helper()
	idx, err := h.store.DelayIndex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func (h *harness) occurrences(t *testing.T, name string) []int64 {
	t.Helper()
	occ, err := h.store.Occurrences(context.Background(), job.NameHash(name))
	if err != nil {
		t.Fatal(err)
	}
	return occ
}

func (h *harness) queueLen(t *testing.T, queue string) int64 {
	t.Helper()
	n, err := h.store.QueueLen(context.Background(), queue)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func TestNew_RequiresStore(t *testing.T) {
	if _, err := engine.New(nil); !errors.Is(err, crontab.ErrNoStore) {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
}

// ──────────────────────────────────────────────────
// Scheduling
// ──────────────────────────────────────────────────

func TestSubmit_FutureJobWaitsInBucketUntilPromoted(t *testing.T) {
	h := newHarness(t)
	due := base + 60

	h.submit(t, job.Submission{
		Name:       "mailer/send",
		Args:       json.RawMessage(`{"to":"a@b.com"}`),
		Time:       due,
		Queue:      "default",
		RetryStack: []int64{},
	})

	if n, _ := h.store.BucketLen(context.Background(), due); n != 1 {
		t.Fatalf("bucket len = %d, want 1", n)
	}
	if n := h.queueLen(t, "default"); n != 0 {
		t.Fatalf("queue len = %d, want 0 before promotion", n)
	}
	if idx := h.index(t); !reflect.DeepEqual(idx, []int64{due}) {
		t.Fatalf("index = %v", idx)
	}
	if occ := h.occurrences(t, "mailer/send"); !reflect.DeepEqual(occ, []int64{due}) {
		t.Fatalf("occurrences = %v", occ)
	}

	h.clock.Set(due - 1)
	if n := h.tick(t); n != 0 {
		t.Fatalf("promoted %d jobs before due", n)
	}

	h.clock.Set(due)
	if n := h.tick(t); n != 1 {
		t.Fatalf("promoted = %d, want 1", n)
	}
	if n, _ := h.store.BucketLen(context.Background(), due); n != 0 {
		t.Fatal("bucket should no longer exist")
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("index = %v, want empty", idx)
	}
	if occ := h.occurrences(t, "mailer/send"); len(occ) != 0 {
		t.Fatalf("occurrences = %v, want empty after promotion", occ)
	}

	j := h.popQueued(t, "default")
	if j.Name != "mailer/send" || string(j.Args) != `{"to":"a@b.com"}` || j.DueTime != 0 {
		t.Fatalf("queued job = %+v", j)
	}
}

func TestSubmit_DueJobQueuedImmediately(t *testing.T) {
	h := newHarness(t)

	h.submit(t, job.Submission{Name: "a", Time: base, Queue: "q"})
	h.submit(t, job.Submission{Name: "b", Time: base - 30, Queue: "q"})
	h.submit(t, job.Submission{Name: "c", Queue: "q"})

	if n := h.queueLen(t, "q"); n != 3 {
		t.Fatalf("queue len = %d, want 3", n)
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("due jobs must never touch the delay index, got %v", idx)
	}
	if j := h.popQueued(t, "q"); j.RetryStack == nil {
		t.Fatal("retry stack should be encoded as an empty list")
	}
}

func TestSubmit_DefaultQueue(t *testing.T) {
	h := newHarness(t)
	h.submit(t, job.Submission{Name: "a"})

	if n := h.queueLen(t, "default"); n != 1 {
		t.Fatalf("default queue len = %d, want 1", n)
	}
}

func TestSubmit_EmptyNameRejected(t *testing.T) {
	h := newHarness(t)
	err := h.eng.Submit(context.Background(), job.Submission{Time: base})
	if !errors.Is(err, crontab.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

type failingStore struct {
	*memory.Store
	err error
}

func (f *failingStore) AddDelayed(context.Context, int64, string, []byte) error { return f.err }
func (f *failingStore) PushReady(context.Context, string, []byte) error         { return f.err }

func TestSubmit_StoreFailureIsReturned(t *testing.T) {
	boom := errors.New("connection refused")
	var s store.Store = &failingStore{Store: memory.New(), err: boom}
	eng, err := engine.New(s, engine.WithClock(func() time.Time { return time.Unix(base, 0) }))
	if err != nil {
		t.Fatal(err)
	}

	for _, at := range []int64{base, base + 10} {
		err := eng.Submit(context.Background(), job.Submission{Name: "x", Time: at})
		if !errors.Is(err, boom) {
			t.Fatalf("Submit(time=%d) = %v, want wrapped store error", at, err)
		}
	}
}

func TestTicker_DrainIsIdempotent(t *testing.T) {
	h := newHarness(t)
	for i := range 3 {
		h.submit(t, job.Submission{Name: fmt.Sprintf("j%d", i), Time: base + 10})
	}
	h.submit(t, job.Submission{Name: "late", Time: base + 20})

	h.clock.Set(base + 30)
	if n := h.tick(t); n != 4 {
		t.Fatalf("promoted = %d, want 4", n)
	}
	if n := h.tick(t); n != 0 {
		t.Fatalf("second run promoted %d", n)
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("index = %v, want empty", idx)
	}
	if n := h.queueLen(t, "default"); n != 4 {
		t.Fatalf("queue len = %d, want 4", n)
	}
}

func TestTicker_PromotesIntoOriginalQueue(t *testing.T) {
	h := newHarness(t)
	h.submit(t, job.Submission{Name: "x", Time: base + 5, Queue: "mail", RetryStack: []int64{base + 99}})

	h.clock.Set(base + 5)
	h.tick(t)

	j := h.popQueued(t, "mail")
	if !reflect.DeepEqual(j.RetryStack, []int64{base + 99}) {
		t.Fatalf("retry stack = %v", j.RetryStack)
	}
}

// ──────────────────────────────────────────────────
// Cancellation
// ──────────────────────────────────────────────────

func TestCancel_ByNameRemovesEveryOccurrence(t *testing.T) {
	h := newHarness(t)
	h.submit(t, job.Submission{Name: "mailer/send", Time: base + 10})
	h.submit(t, job.Submission{Name: "mailer/send", Time: base + 20})
	h.submit(t, job.Submission{Name: "other", Time: base + 30})

	h.submit(t, job.Submission{Name: "mailer/send", Args: job.CancelArgs})

	if occ := h.occurrences(t, "mailer/send"); len(occ) != 0 {
		t.Fatalf("occurrences = %v, want none", occ)
	}

	h.clock.Set(base + 100)
	if n := h.tick(t); n != 1 {
		t.Fatalf("promoted = %d, want only the other job", n)
	}
	if j := h.popQueued(t, "default"); j.Name != "other" {
		t.Fatalf("promoted %q", j.Name)
	}
}

func TestCancel_ByNameSharedBucketNeverRuns(t *testing.T) {
	h := newHarness(t)
	at := base + 60
	h.submit(t, job.Submission{Name: "other", Time: at})
	h.submit(t, job.Submission{Name: "mailer/send", Time: at})

	h.submit(t, job.Submission{Name: "mailer/send", Args: job.CancelArgs})

	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("index = %v, want empty", idx)
	}
	h.clock.Set(at)
	h.tick(t)
	for h.queueLen(t, "default") > 0 {
		if j := h.popQueued(t, "default"); j.Name == "mailer/send" {
			t.Fatal("cancelled job was promoted")
		}
	}
}

func TestCancel_ByNameDuplicateSubmissionsNeverRun(t *testing.T) {
	h := newHarness(t)
	at := base + 60
	h.submit(t, job.Submission{Name: "mailer/send", Time: at})
	h.submit(t, job.Submission{Name: "mailer/send", Time: at})

	h.submit(t, job.Submission{Name: "mailer/send", Args: job.CancelArgs})

	if occ := h.occurrences(t, "mailer/send"); len(occ) != 0 {
		t.Fatalf("occurrences = %v, want none", occ)
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("index = %v, want empty", idx)
	}
	h.clock.Set(at)
	if n := h.tick(t); n != 0 {
		t.Fatalf("promoted = %d, want 0", n)
	}
}

func TestCancel_AtTimeSkipsExecution(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	h.eng.Registry().RegisterFunc("mailer", "send", func(context.Context, []byte) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	at := base + 60
	h.submit(t, job.Submission{Name: "mailer/send", Time: at})
	h.submit(t, job.Submission{Name: "mailer/send", Args: json.RawMessage(" false "), Time: at})

	for _, occ := range h.occurrences(t, "mailer/send") {
		if occ == at {
			t.Fatal("occurrence set still holds the cancelled time")
		}
	}

	h.clock.Set(at)
	h.tick(t)
	h.consume(t)
	if calls.Load() != 0 {
		t.Fatal("cancelled job executed")
	}
}

// ──────────────────────────────────────────────────
// Dispatch and retry
// ──────────────────────────────────────────────────

func TestDispatch_SuccessIsDiscarded(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	h.eng.Registry().RegisterFunc("Mailer", "send", func(context.Context, []byte) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	h.submit(t, job.Submission{Name: "Mailer/send", RetryStack: []int64{base + 10}})
	h.consume(t)

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("success must not reschedule, index = %v", idx)
	}
	if n, _ := h.store.ActiveLen(context.Background()); n != 0 {
		t.Fatalf("active len = %d", n)
	}
}

func TestDispatch_FailureRetriesOnceWithShorterStack(t *testing.T) {
	h := newHarness(t)
	h.eng.Registry().RegisterFunc("Mailer", "send", func(context.Context, []byte) (bool, error) {
		return false, nil
	})

	h.submit(t, job.Submission{Name: "Mailer/send", Queue: "mail", RetryStack: []int64{base + 50, base + 40}})
	h.consume(t)

	if idx := h.index(t); !reflect.DeepEqual(idx, []int64{base + 40}) {
		t.Fatalf("index = %v, want [%d]", idx, base+40)
	}
	j := h.popDelayed(t, base+40)
	if j.Queue != "mail" || !reflect.DeepEqual(j.RetryStack, []int64{base + 50}) || j.DueTime != base+40 {
		t.Fatalf("retried job = %+v", j)
	}
}

func TestDispatch_ExhaustsAfterExactlyNRetries(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	h.eng.Registry().RegisterFunc("Mailer", "send", func(context.Context, []byte) (bool, error) {
		calls.Add(1)
		return false, errors.New("smtp down")
	})

	const n = 3
	h.submit(t, job.Submission{
		Name:       "Mailer/send",
		Args:       json.RawMessage(`{"to":"x"}`),
		RetryStack: []int64{base + 30, base + 20, base + 10},
	})

	for i := 0; i <= n+1; i++ {
		h.consume(t)
		h.clock.Set(base + int64(10*(i+1)))
		h.tick(t)
	}

	if got := calls.Load(); got != n+1 {
		t.Fatalf("attempts = %d, want %d", got, n+1)
	}
	if got := strings.Count(h.logs.String(), `msg="cron failed"`); got != 1 {
		t.Fatalf("permanent failure logged %d times, want 1", got)
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("index = %v, want empty", idx)
	}

	entries, err := h.eng.DLQService().DLQStore().ListDLQ(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Error != "smtp down" || entries[0].Job.Name != "Mailer/send" {
		t.Fatalf("dlq = %+v", entries)
	}

	if _, err := h.eng.DLQService().Replay(context.Background(), entries[0].ID); err != nil {
		t.Fatal(err)
	}
	if n := h.queueLen(t, "default"); n != 1 {
		t.Fatalf("replayed job not queued, len = %d", n)
	}
}

func TestDispatch_DLQDisabled(t *testing.T) {
	h := newHarness(t, engine.WithDLQ(false))
	h.eng.Registry().RegisterFunc("X", "", func(context.Context, []byte) (bool, error) {
		return false, nil
	})

	h.submit(t, job.Submission{Name: "X"})
	h.consume(t)

	if n, _ := h.store.CountDLQ(context.Background()); n != 0 {
		t.Fatalf("dlq count = %d, want 0", n)
	}
	if !strings.Contains(h.logs.String(), `msg="cron failed"`) {
		t.Fatal("permanent failure should still be logged")
	}
}

func TestDispatch_RemoteTransportErrorRetriesFromTail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := newHarness(t)
	name := url + "/svc/run"
	h.submit(t, job.Submission{
		Name:       name,
		Args:       json.RawMessage(`{"x":1}`),
		Time:       base,
		Queue:      "default",
		RetryStack: []int64{base + 30, base + 90},
	})
	h.consume(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.eng.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	j := h.popDelayed(t, base+90)
	if j.Name != name || !reflect.DeepEqual(j.RetryStack, []int64{base + 30}) {
		t.Fatalf("retried job = %+v", j)
	}
	if !strings.Contains(h.logs.String(), "level=ERROR") {
		t.Fatalf("transport error should be logged: %s", h.logs.String())
	}
}

type staticInvoker string

func (s staticInvoker) Post(context.Context, string, []byte) ([]byte, error) {
	return []byte(s), nil
}

func TestDispatch_RemoteSuccessWithCustomInvoker(t *testing.T) {
	h := newHarness(t, engine.WithInvoker(staticInvoker(crontab.ReplySuccess)))
	h.submit(t, job.Submission{Name: "https://svc.example/run", RetryStack: []int64{base + 10}})
	h.consume(t)

	if err := h.eng.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if idx := h.index(t); len(idx) != 0 {
		t.Fatalf("acknowledged remote job was retried: %v", idx)
	}
}

// ──────────────────────────────────────────────────
// Concurrent promotion
// ──────────────────────────────────────────────────

func TestConcurrentTickersPromoteEachJobOnce(t *testing.T) {
	backends := map[string]func(t *testing.T) store.Store{
		"memory": func(*testing.T) store.Store { return memory.New() },
		"redis": func(t *testing.T) store.Store {
			mr := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return redisstore.New(client)
		},
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			c := &clock{now: base}
			newEng := func() *engine.Engine {
				eng, err := engine.New(s, engine.WithClock(c.Now), engine.WithLogger(slog.New(slog.DiscardHandler)))
				if err != nil {
					t.Fatal(err)
				}
				return eng
			}
			a, b := newEng(), newEng()

			const jobs = 100
			for i := range jobs {
				if err := a.Submit(context.Background(), job.Submission{Name: fmt.Sprintf("j%d", i), Time: base + 5}); err != nil {
					t.Fatal(err)
				}
			}
			c.Set(base + 5)

			var total atomic.Int64
			var wg sync.WaitGroup
			for _, eng := range []*engine.Engine{a, b} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					n, err := eng.Ticker().RunOnce(context.Background())
					if err != nil {
						t.Error(err)
					}
					total.Add(int64(n))
				}()
			}
			wg.Wait()

			if total.Load() != jobs {
				t.Fatalf("promoted = %d, want %d", total.Load(), jobs)
			}
			if n, _ := s.QueueLen(context.Background(), "default"); n != jobs {
				t.Fatalf("queue len = %d, want %d", n, jobs)
			}
			if idx, _ := s.DelayIndex(context.Background()); len(idx) != 0 {
				t.Fatalf("index = %v, want empty", idx)
			}

			seen := make(map[string]bool)
			for {
				data, ok, err := s.PopReady(context.Background(), "default")
				if err != nil {
					t.Fatal(err)
				}
				if !ok {
					break
				}
				j, _ := job.Decode(data)
				if seen[j.Name] {
					t.Fatalf("%s promoted twice", j.Name)
				}
				seen[j.Name] = true
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Extensions, retry stacks, lifecycle
// ──────────────────────────────────────────────────

type hookRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *hookRecorder) Name() string { return "hooks" }

func (r *hookRecorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *hookRecorder) OnJobScheduled(_ context.Context, j *job.Job, due int64) error {
	r.add(fmt.Sprintf("scheduled:%s:%d", j.Name, due-base))
	return nil
}

func (r *hookRecorder) OnJobQueued(_ context.Context, queue string, j *job.Job) error {
	r.add("queued:" + queue + ":" + j.Name)
	return nil
}

func (r *hookRecorder) OnJobCancelled(_ context.Context, name string, dues []int64) error {
	r.add(fmt.Sprintf("cancelled:%s:%d", name, len(dues)))
	return nil
}

func (r *hookRecorder) OnShutdown(context.Context) error {
	r.add("shutdown")
	return nil
}

func TestExtensionsObserveLifecycle(t *testing.T) {
	rec := &hookRecorder{}
	h := newHarness(t, engine.WithExtension(rec))

	h.submit(t, job.Submission{Name: "a", Time: base + 10})
	h.submit(t, job.Submission{Name: "b", Time: base + 20})
	h.submit(t, job.Submission{Name: "b", Args: job.CancelArgs})
	h.clock.Set(base + 10)
	h.tick(t)
	_ = h.eng.Stop(context.Background())

	want := []string{
		"scheduled:a:10",
		"scheduled:b:20",
		"cancelled:b:1",
		"queued:default:a",
		"shutdown",
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestRetryStackUsesBackoff(t *testing.T) {
	h := newHarness(t, engine.WithBackoff(backoff.NewConstant(time.Minute)))

	got := h.eng.RetryStack(3)
	want := []int64{base + 180, base + 120, base + 60}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RetryStack(3) = %v, want %v", got, want)
	}
}

func TestEnqueueTypedPayload(t *testing.T) {
	h := newHarness(t)
	type email struct {
		To string `json:"to"`
	}

	var got email
	engine.Register(h.eng, job.NewDefinition("Mailer", func(_ context.Context, p email) (bool, error) {
		got = p
		return true, nil
	}))

	if err := engine.Enqueue(context.Background(), h.eng, "Mailer", email{To: "alice@example.com"}, job.WithQueue("mail")); err != nil {
		t.Fatal(err)
	}
	h.consume(t)

	if got.To != "alice@example.com" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestRunAndStop(t *testing.T) {
	cfg := crontab.DefaultConfig()
	cfg.DelayInterval = 10 * time.Millisecond
	cfg.ConsumeInterval = 10 * time.Millisecond

	eng, err := engine.New(memory.New(),
		engine.WithConfig(cfg),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan string, 2)
	eng.Registry().RegisterFunc("Task", "", func(_ context.Context, payload []byte) (bool, error) {
		done <- string(payload)
		return true, nil
	})

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(context.Background()) }()

	ctx := context.Background()
	if err := eng.Submit(ctx, job.Submission{Name: "Task", Args: json.RawMessage(`"now"`)}); err != nil {
		t.Fatal(err)
	}
	if err := eng.Submit(ctx, job.Submission{Name: "Task", Args: json.RawMessage(`"later"`), Time: time.Now().Unix() + 1}); err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case p := <-done:
			got[p] = true
		case <-timeout:
			t.Fatalf("timed out, processed %v", got)
		}
	}

	if err := eng.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestNew_FillsUnsetIntervals(t *testing.T) {
	eng, err := engine.New(memory.New(),
		engine.WithConfig(crontab.Config{DelayInterval: -time.Second}),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defaults := crontab.DefaultConfig()
	cfg := eng.Config()
	if cfg.DelayInterval != defaults.DelayInterval || cfg.ConsumeInterval != defaults.ConsumeInterval {
		t.Fatalf("intervals = %v/%v, want defaults", cfg.DelayInterval, cfg.ConsumeInterval)
	}
	if cfg.DefaultQueue != defaults.DefaultQueue {
		t.Fatalf("default queue = %q", cfg.DefaultQueue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()
	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsBadJanitorSchedule(t *testing.T) {
	eng, err := engine.New(memory.New(),
		engine.WithDLQJanitor("every now and then", time.Hour),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestInstanceIdentifiesEachEngine(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)

	if a.eng.Instance().Prefix() != "wkr" {
		t.Fatalf("instance prefix = %q", a.eng.Instance().Prefix())
	}
	if a.eng.Instance().String() == b.eng.Instance().String() {
		t.Fatal("engines must not share an instance id")
	}
}
