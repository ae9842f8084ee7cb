package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnDecodeStart(ctx, 1024)
	p.OnDecodeComplete(ctx, 640, 480, time.Millisecond, nil)
	p.OnConvertStart(ctx, 640, 480)
	p.OnConvertComplete(ctx, 96, 12, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "document")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	s := NoopServerHooks{}
	s.OnRequest(ctx, "POST", "/v1/convert")
	s.OnResponse(ctx, "POST", "/v1/convert", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customServer := &testServerHooks{}
	SetServerHooks(customServer)
	if Server() != customServer {
		t.Error("SetServerHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should keep the current hooks")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	h := &testPipelineHooks{}
	SetPipelineHooks(h)
	Pipeline().OnConvertComplete(context.Background(), 10, 3, time.Second, nil)

	if h.rows != 10 || h.adjusted != 3 {
		t.Errorf("hook saw rows=%d adjusted=%d, want 10 and 3", h.rows, h.adjusted)
	}
}

type testPipelineHooks struct {
	NoopPipelineHooks
	rows, adjusted int
}

func (h *testPipelineHooks) OnConvertComplete(_ context.Context, rows, adjusted int, _ time.Duration, _ error) {
	h.rows, h.adjusted = rows, adjusted
}

type testCacheHooks struct{ NoopCacheHooks }

type testServerHooks struct{ NoopServerHooks }
