package hooking

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type kinded string

func (k kinded) KindName() string { return string(k) }

type recordingHook struct {
	positions []*HookPos
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

var _ = Describe("HookableBase", func() {
	It("should invoke hooks in registration order", func() {
		base := &HookableBase{}
		first := &recordingHook{}
		second := &recordingHook{}

		base.AcceptHook(first)
		base.AcceptHook(second)
		base.InvokeHook(HookCtx{Domain: base, Pos: HookPosRoundEnd})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(base.Hooks()).To(ConsistOf(first, second))
		Expect(first.positions).To(Equal([]*HookPos{HookPosRoundEnd}))
		Expect(second.positions).To(Equal([]*HookPos{HookPosRoundEnd}))
	})

	It("should panic on a duplicated hook", func() {
		base := &HookableBase{}
		hook := &recordingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})
})

var _ = Describe("KindCountTracer", func() {
	It("should count events after execution only", func() {
		t := NewKindCountTracer()

		t.Func(HookCtx{Pos: HookPosBeforeEvent, Item: kinded("refill")})
		t.Func(HookCtx{Pos: HookPosAfterEvent, Item: kinded("refill")})
		t.Func(HookCtx{Pos: HookPosAfterEvent, Item: kinded("refill")})
		t.Func(HookCtx{Pos: HookPosAfterEvent, Item: kinded("packet")})
		t.Func(HookCtx{Pos: HookPosAfterEvent, Item: 42})

		Expect(t.KindNames()).To(Equal([]string{"packet", "refill"}))
		Expect(t.KindCount("refill")).To(Equal(uint64(2)))
		Expect(t.KindCount("heartbeat")).To(BeZero())
		Expect(t.Total()).To(Equal(uint64(3)))
	})

	It("should be safe for concurrent use", func() {
		t := NewKindCountTracer()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					t.Func(HookCtx{Pos: HookPosAfterEvent, Item: kinded("x")})
				}
			}()
		}
		wg.Wait()

		Expect(t.KindCount("x")).To(Equal(uint64(1000)))
	})
})
