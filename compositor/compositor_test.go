package compositor

import (
	"errors"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/vitrine/render"
	"pkt.systems/vitrine/schema"
)

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(schema.CompositorConfig{}, Deps{})
	if !errors.Is(err, schema.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestNewSelectsPngTargetForOutputFile(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{OutputFile: filepath.Join(t.TempDir(), "out.png")})
	if h.c.Target() != TargetPngFile {
		t.Fatalf("expected png file target, got %s", h.c.Target())
	}
}

func TestReadinessIsOneShot(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.frameTree(doc, &fakeLayout{}, 1)
	h.backend.epochs[pipelineID(1)] = 4

	_, err := h.c.CompositeSpecificTarget(TargetWindowAndPng)
	if reason, ok := NotReadyReason(err); !ok || reason != NotReadyJustNotifiedConstellation {
		t.Fatalf("expected just notified, got %v", err)
	}
	if h.c.ReadyState() != ReadyWaitingForReply {
		t.Fatalf("expected waiting for reply, got %s", h.c.ReadyState())
	}
	query := h.constellation.msgs[len(h.constellation.msgs)-1].(schema.IsReadyToSaveImageMsg)
	if query.Epochs[pipelineID(1)] != 4 {
		t.Fatalf("expected painted epoch in query, got %+v", query.Epochs)
	}

	_, err = h.c.CompositeSpecificTarget(TargetWindowAndPng)
	if reason, _ := NotReadyReason(err); reason != NotReadyWaitingOnConstellation {
		t.Fatalf("expected waiting on constellation, got %v", err)
	}
	if h.constellation.readinessQueries() != 1 {
		t.Fatalf("expected a single outstanding query, got %d", h.constellation.readinessQueries())
	}

	h.c.HandleMessage(IsReadyToSaveImageReply{Ready: true})
	if h.c.ReadyState() != ReadyToSave {
		t.Fatalf("expected ready to save, got %s", h.c.ReadyState())
	}
	if req := h.c.CompositionRequest(); !req.Pending || req.Reason != ReasonHeadless {
		t.Fatalf("expected headless composite request, got %+v", req)
	}

	img, err := h.c.CompositeSpecificTarget(TargetWindowAndPng)
	if err != nil {
		t.Fatalf("expected composite to succeed, got %v", err)
	}
	if img == nil || img.Bounds().Dx() != 64 {
		t.Fatalf("expected pixels from composite")
	}
	if h.c.ReadyState() != ReadyUnknown {
		t.Fatalf("expected ready state consumed, got %s", h.c.ReadyState())
	}

	_, err = h.c.CompositeSpecificTarget(TargetWindowAndPng)
	if reason, _ := NotReadyReason(err); reason != NotReadyJustNotifiedConstellation {
		t.Fatalf("expected a fresh query after consuming readiness, got %v", err)
	}
	if h.constellation.readinessQueries() != 2 {
		t.Fatalf("expected second query, got %d", h.constellation.readinessQueries())
	}
}

func TestNegativeReadyReplyResets(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	h.c.CompositeSpecificTarget(TargetWindowAndPng)
	h.c.HandleMessage(IsReadyToSaveImageReply{Ready: false})
	if h.c.ReadyState() != ReadyUnknown {
		t.Fatalf("expected unknown after negative reply, got %s", h.c.ReadyState())
	}
	if !h.c.CompositionRequest().Pending {
		t.Fatalf("expected negative reply to schedule a composite")
	}
}

func TestWindowTargetSkipsReadiness(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	if _, err := h.c.CompositeSpecificTarget(TargetWindow); err != nil {
		t.Fatalf("expected window composite, got %v", err)
	}
	if h.constellation.readinessQueries() != 0 {
		t.Fatalf("did not expect readiness queries for window target")
	}
	if h.window.presents != 1 || h.backend.renders != 1 || h.backend.updates != 1 {
		t.Fatalf("expected one full pass, got presents=%d renders=%d updates=%d", h.window.presents, h.backend.renders, h.backend.updates)
	}
	if !h.c.LastCompositeTime().Equal(h.now) {
		t.Fatalf("expected last composite time to be recorded")
	}
	if h.profiler.records[CategoryCompositing] != 1 {
		t.Fatalf("expected compositing to be profiled")
	}
}

func TestWindowUnprepared(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	h.window.unprepared = true
	_, err := h.c.CompositeSpecificTarget(TargetWindow)
	if !errors.Is(err, ErrWindowUnprepared) || !IsNotReady(err) {
		t.Fatalf("expected window unprepared, got %v", err)
	}
	if h.backend.updates != 0 {
		t.Fatalf("expected no backend work when unprepared")
	}
}

func TestSnapshotWithAnimationReportsNotReadyAndTicks(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.frameTree(doc, &fakeLayout{}, 1)
	h.c.HandleMessage(ChangeRunningAnimationsState{Pipeline: pipelineID(1), State: schema.AnimationsPresent})
	before := len(h.constellation.ticks())

	_, err := h.c.CompositeSpecificTarget(TargetPngFile)
	if !errors.Is(err, newNotReady(NotReadyAnimationsActive)) {
		t.Fatalf("expected animations active, got %v", err)
	}
	ticks := h.constellation.ticks()[before:]
	if len(ticks) != 1 || ticks[0].Pipeline != pipelineID(1) || ticks[0].Type != schema.TickLayout {
		t.Fatalf("expected a layout tick, got %+v", ticks)
	}
	if h.window.lastState() != AnimationAnimating {
		t.Fatalf("expected window to be told about animations")
	}
	if h.backend.renders != 0 || h.constellation.readinessQueries() != 0 {
		t.Fatalf("expected no render and no readiness query while animating")
	}
}

func TestInvisiblePipelineIsNotTicked(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.frameTree(doc, &fakeLayout{}, 1, 2)
	h.c.HandleMessage(PipelineVisibilityChanged{Pipeline: pipelineID(2), Visible: false})
	h.c.HandleMessage(ChangeRunningAnimationsState{Pipeline: pipelineID(1), State: schema.AnimationsPresent})
	h.c.HandleMessage(ChangeRunningAnimationsState{Pipeline: pipelineID(2), State: schema.AnimationCallbacksPresent})

	for _, tick := range h.constellation.ticks() {
		if tick.Pipeline == pipelineID(2) {
			t.Fatalf("invisible pipeline was ticked: %+v", tick)
		}
	}

	h.constellation.msgs = nil
	h.c.ProcessAnimations()
	ticks := h.constellation.ticks()
	if len(ticks) != 1 || ticks[0].Pipeline != pipelineID(1) {
		t.Fatalf("expected only the visible pipeline to tick, got %+v", ticks)
	}

	h.constellation.msgs = nil
	h.c.HandleMessage(PipelineVisibilityChanged{Pipeline: pipelineID(2), Visible: true})
	var script int
	for _, tick := range h.constellation.ticks() {
		if tick.Pipeline == pipelineID(2) && tick.Type == schema.TickScript {
			script++
		}
	}
	if script != 1 {
		t.Fatalf("expected script tick once visible, got %d", script)
	}
}

func TestAnimationStateFlags(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	id := pipelineID(5)
	h.c.HandleMessage(ChangeRunningAnimationsState{Pipeline: id, State: schema.AnimationsPresent})
	if req := h.c.CompositionRequest(); !req.Pending || req.Reason != ReasonAnimation {
		t.Fatalf("expected animation composite request, got %+v", req)
	}
	h.c.HandleMessage(ChangeRunningAnimationsState{Pipeline: id, State: schema.NoAnimationsPresent})
	details, ok := h.c.PipelineDetails(id)
	if !ok || details.AnimationsRunning || !details.Visible {
		t.Fatalf("unexpected details %+v", details)
	}
	h.c.ProcessAnimations()
	if h.window.lastState() != AnimationIdle {
		t.Fatalf("expected idle window")
	}
}

func TestShutdownIsMonotonic(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)

	h.c.MaybeStartShuttingDown()
	h.c.MaybeStartShuttingDown()
	if h.c.ShutdownState() != ShuttingDown {
		t.Fatalf("expected shutting down, got %s", h.c.ShutdownState())
	}
	if h.constellation.exits() != 1 {
		t.Fatalf("expected a single exit message, got %d", h.constellation.exits())
	}

	h.c.HandleMessage(SetFrameTree{Document: doc, Tree: schema.SendableFrameTree{Pipeline: schema.CompositionPipeline{ID: pipelineID(1)}}})
	if area, _ := h.c.Area(doc); area.Root() != nil {
		t.Fatalf("expected frame tree to be ignored while shutting down")
	}
	h.c.HandleMessage(Recomposite{Reason: ReasonScroll})
	if h.c.CompositionRequest().Pending {
		t.Fatalf("expected recomposite to be ignored while shutting down")
	}
	h.c.HandleMessage(PendingPaintMetric{Pipeline: pipelineID(1), Epoch: 2})
	if h.c.PendingPaintMetrics() != 1 {
		t.Fatalf("expected paint metric to be recorded while shutting down")
	}
	ack := make(chan struct{}, 1)
	h.c.HandleMessage(PipelineExited{Pipeline: pipelineID(1), Ack: ack})
	select {
	case <-ack:
	default:
		t.Fatalf("expected pipeline exit to be acknowledged")
	}
	if _, err := h.c.CompositeSpecificTarget(TargetWindow); err == nil {
		t.Fatalf("expected no composite while shutting down")
	}

	_ = h.proxy.Send(Recomposite{Reason: ReasonZoom})
	if h.c.HandleMessage(ShutdownComplete{}) {
		t.Fatalf("expected shutdown complete to stop the pump")
	}
	if h.c.ShutdownState() != FinishedShuttingDown {
		t.Fatalf("expected finished, got %s", h.c.ShutdownState())
	}
	if !h.profiler.exited {
		t.Fatalf("expected profiler exit handshake")
	}
	if _, ok := h.c.port.TryRecv(); ok {
		t.Fatalf("expected mailbox drained during shutdown")
	}

	h.c.MaybeStartShuttingDown()
	if h.c.ShutdownState() != FinishedShuttingDown || h.constellation.exits() != 1 {
		t.Fatalf("shutdown state moved backwards")
	}
	if h.c.HandleMessage(Recomposite{Reason: ReasonZoom}) {
		t.Fatalf("expected messages to be rejected after shutdown")
	}
	if h.c.PerformUpdates() {
		t.Fatalf("expected perform updates to report finished")
	}
	if h.window.presents != 0 {
		t.Fatalf("expected no presents after shutdown began")
	}
}

func TestReceiveMessagesCollapsesRecomposites(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	var order []int
	_ = h.proxy.Send(Recomposite{Reason: ReasonScroll})
	_ = h.proxy.Send(Dispatch{Func: func() { order = append(order, 1) }})
	_ = h.proxy.Send(Recomposite{Reason: ReasonZoom})
	_ = h.proxy.Send(Dispatch{Func: func() { order = append(order, 2) }})
	_ = h.proxy.Send(Recomposite{Reason: ReasonAnimation})

	if !h.c.ReceiveMessages() {
		t.Fatalf("expected pump to continue")
	}
	if req := h.c.CompositionRequest(); !req.Pending || req.Reason != ReasonScroll {
		t.Fatalf("expected first recomposite reason to win, got %+v", req)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected dispatches in order, got %v", order)
	}
	if h.window.wakes != 5 {
		t.Fatalf("expected a wake per send, got %d", h.window.wakes)
	}
}

func TestReceiveMessagesStopsOnShutdownComplete(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	h.c.MaybeStartShuttingDown()
	reply := make(chan *image.RGBA)
	ack := make(chan struct{})
	_ = h.proxy.Send(ShutdownComplete{})
	_ = h.proxy.Send(CreatePng{Reply: reply})
	_ = h.proxy.Send(PipelineExited{Pipeline: pipelineID(1), Ack: ack})
	if h.c.ReceiveMessages() {
		t.Fatalf("expected pump to stop")
	}
	if h.c.ShutdownState() != FinishedShuttingDown {
		t.Fatalf("expected finished, got %s", h.c.ShutdownState())
	}
	select {
	case img := <-reply:
		if img != nil {
			t.Fatalf("expected nil image for released create png")
		}
	case <-time.After(time.Second):
		t.Fatalf("create png sender never released")
	}
	select {
	case <-ack:
	case <-time.After(time.Second):
		t.Fatalf("pipeline exited sender never released")
	}
	if err := h.proxy.Send(Recomposite{Reason: ReasonZoom}); !errors.Is(err, schema.ErrPeerClosed) {
		t.Fatalf("expected closed mailbox after shutdown, got %v", err)
	}
}

func TestPipelineExitedReleasesUnbufferedAck(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	ack := make(chan struct{})
	if err := h.proxy.Send(PipelineExited{Pipeline: pipelineID(2), Ack: ack}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !h.c.ReceiveMessages() {
		t.Fatalf("expected pump to continue")
	}
	select {
	case <-ack:
	case <-time.After(time.Second):
		t.Fatalf("sender waiting on pipeline exit ack never released")
	}
}

func TestUnknownDocumentIsDropped(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	h.frameTree(schema.DocumentID(99), &fakeLayout{}, 1)
	if _, ok := h.c.Pipeline(pipelineID(1)); !ok {
		t.Fatalf("expected pipeline registered even without an area")
	}
	h.c.OnScrollEvent(99, schema.DeltaScroll(schema.Vec(1, 1)), schema.IntPoint{}, schema.TouchMove)
	h.c.HandleMessage(NewScrollFrameReady{Document: 99})
	if h.backend.txns != 0 {
		t.Fatalf("expected no transactions for unknown document")
	}
}

func TestPipelineExitedForgetsDetails(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	h.c.HandleMessage(ChangeRunningAnimationsState{Pipeline: pipelineID(3), State: schema.NoAnimationsPresent})
	if len(h.c.PipelineIDs()) != 1 {
		t.Fatalf("expected lazily created details")
	}
	h.c.HandleMessage(PipelineExited{Pipeline: pipelineID(3)})
	if _, ok := h.c.PipelineDetails(pipelineID(3)); ok {
		t.Fatalf("expected details removed")
	}
}

func TestPaintMetricsResolveOnMatchingEpoch(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	layout := &fakeLayout{}
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.frameTree(doc, layout, 1)
	layout.msgs = nil

	h.c.HandleMessage(PendingPaintMetric{Pipeline: pipelineID(1), Epoch: 3})
	h.backend.epochs[pipelineID(1)] = 2
	h.c.CompositeSpecificTarget(TargetWindow)
	if h.c.PendingPaintMetrics() != 1 || len(layout.msgs) != 0 {
		t.Fatalf("expected metric to stay pending for older epoch")
	}

	h.backend.epochs[pipelineID(1)] = 3
	h.c.CompositeSpecificTarget(TargetWindow)
	if h.c.PendingPaintMetrics() != 0 {
		t.Fatalf("expected metric to resolve")
	}
	if len(layout.msgs) != 1 {
		t.Fatalf("expected one paint metric, got %d", len(layout.msgs))
	}
	metric, ok := layout.msgs[0].(schema.PaintMetric)
	if !ok || metric.Epoch != 3 || !metric.Time.Equal(h.now) {
		t.Fatalf("unexpected paint metric %#v", layout.msgs[0])
	}
}

func TestPerformUpdatesFlushesAreasAndForwardsScrollStates(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	layout := &fakeLayout{}
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.frameTree(doc, layout, 1)
	h.backend.scrollNodes = []render.ScrollNodeState{{ID: schema.ExternalScrollID{ID: 1, Pipeline: pipelineID(1)}, Offset: schema.Vec(0, 12)}}
	layout.msgs = nil

	h.c.OnScrollEvent(doc, schema.DeltaScroll(schema.Vec(0, 4)), schema.IntPoint{X: 1, Y: 1}, schema.TouchDown)
	if !h.c.PerformUpdates() {
		t.Fatalf("expected pump to continue")
	}
	area, _ := h.c.Area(doc)
	if !area.WaitingForResults() {
		t.Fatalf("expected flush to be outstanding")
	}
	if len(layout.msgs) != 1 {
		t.Fatalf("expected scroll states forwarded, got %d", len(layout.msgs))
	}
	states := layout.msgs[0].(schema.SetScrollStates)
	if len(states.States) != 1 || states.States[0].Offset != schema.Vec(0, 12) {
		t.Fatalf("unexpected scroll states %+v", states)
	}

	h.c.HandleMessage(NewScrollFrameReady{Document: doc, CompositeNeeded: true})
	if area.WaitingForResults() {
		t.Fatalf("expected scroll frame to acknowledge the flush")
	}
	if req := h.c.CompositionRequest(); req.Reason != ReasonNewScrollFrame {
		t.Fatalf("expected scroll frame composite request, got %+v", req)
	}
	h.c.PerformUpdates()
	if h.window.presents != 1 || h.c.CompositionRequest().Pending {
		t.Fatalf("expected pending composite to run")
	}
}

func TestCompositeWritesOutputFileAndShutsDown(t *testing.T) {
	out := filepath.Join(t.TempDir(), "shots", "out.png")
	h := newHarness(t, schema.CompositorConfig{OutputFile: out})
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.frameTree(doc, &fakeLayout{}, 1)

	h.c.HandleMessage(LoadComplete{})
	if req := h.c.CompositionRequest(); !req.Pending || req.Reason != ReasonHeadless {
		t.Fatalf("expected headless request after load, got %+v", req)
	}
	h.c.PerformUpdates()
	if h.c.ShutdownState() != NotShuttingDown {
		t.Fatalf("expected to wait for readiness before shutting down")
	}
	h.c.HandleMessage(IsReadyToSaveImageReply{Ready: true})
	h.c.PerformUpdates()

	if h.c.ShutdownState() != ShuttingDown || h.constellation.exits() != 1 {
		t.Fatalf("expected shutdown after output, got %s", h.c.ShutdownState())
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" || cfg.Width != 64 || cfg.Height != 48 {
		t.Fatalf("unexpected output %s %dx%d", format, cfg.Width, cfg.Height)
	}
	if h.profiler.records[CategoryImageSaving] != 1 {
		t.Fatalf("expected image saving to be profiled")
	}
}

func TestLoadCompleteIgnoredWithoutHeadlessOptions(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	h.c.HandleMessage(LoadComplete{})
	if h.c.CompositionRequest().Pending {
		t.Fatalf("did not expect a composite request")
	}
}

func TestCreatePngRepliesNilUntilReady(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	reply := make(chan *image.RGBA, 1)
	h.c.HandleMessage(CreatePng{Reply: reply})
	if img := <-reply; img != nil {
		t.Fatalf("expected nil image before readiness")
	}
	h.c.HandleMessage(IsReadyToSaveImageReply{Ready: true})
	h.c.HandleMessage(CreatePng{Reply: reply})
	if img := <-reply; img == nil {
		t.Fatalf("expected image once ready")
	}
}

func TestEmbedderQueriesReply(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	window := make(chan schema.IntRect, 1)
	screen := make(chan schema.IntSize, 1)
	avail := make(chan schema.IntSize, 1)
	h.c.HandleMessage(GetClientWindow{Reply: window})
	h.c.HandleMessage(GetScreenSize{Reply: screen})
	h.c.HandleMessage(GetScreenAvailSize{Reply: avail})
	if got := <-window; got != schema.Rect(10, 20, 64, 48) {
		t.Fatalf("unexpected window %+v", got)
	}
	if got := <-screen; got.Height != 1080 {
		t.Fatalf("unexpected screen %+v", got)
	}
	if got := <-avail; got.Height != 1040 {
		t.Fatalf("unexpected avail %+v", got)
	}
}

func TestRepaintSynchronouslyCompositesOnRecomposite(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	var ran bool
	_ = h.proxy.Send(Dispatch{Func: func() { ran = true }})
	_ = h.proxy.Send(Recomposite{Reason: ReasonNewFrame})
	if err := h.c.RepaintSynchronously(t.Context()); err != nil {
		t.Fatalf("repaint: %v", err)
	}
	if !ran || h.window.presents != 1 {
		t.Fatalf("expected dispatch and composite, ran=%v presents=%d", ran, h.window.presents)
	}
}

func TestOnResizePropagatesCoordinates(t *testing.T) {
	h := newHarness(t, schema.CompositorConfig{})
	doc := h.c.CreateArea(schema.Rect(0, 0, 64, 48), 0)
	h.window.coords.HiDPIFactor = 2
	h.c.OnResize()
	area, _ := h.c.Area(doc)
	if area.Scale() != 2 || h.c.EmbedderCoordinates().HiDPIFactor != 2 {
		t.Fatalf("expected resize to reach the area")
	}
}
