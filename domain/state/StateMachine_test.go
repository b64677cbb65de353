package state_test

import (
	"upkeep/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateMachine", func() {
	Describe("WorkItemStateMachine", func() {
		It("should hold the four statuses", func() {
			Expect(state.WorkItemStateMachine.Statuses).To(Equal(
				[]state.Status{state.Open, state.InProgress, state.Done, state.Cancelled}))
			Expect(state.WorkItemStateMachine.HasStatus(state.Open)).To(BeTrue())
			Expect(state.WorkItemStateMachine.HasStatus(state.Status("UNKNOWN"))).To(BeFalse())
		})

		It("should compute available transitions from each status", func() {
			Expect(state.WorkItemStateMachine.AvailableTransitions(state.Open, "")).To(Equal([]state.Transition{
				{Name: state.ActionStart, From: state.Open, To: state.InProgress},
				{Name: state.ActionCancel, From: state.Open, To: state.Cancelled},
			}))
			Expect(state.WorkItemStateMachine.AvailableTransitions(state.InProgress, "")).To(Equal([]state.Transition{
				{Name: state.ActionStop, From: state.InProgress, To: state.Done},
				{Name: state.ActionCancel, From: state.InProgress, To: state.Cancelled},
			}))
			Expect(state.WorkItemStateMachine.AvailableTransitions(state.Done, "")).To(Equal([]state.Transition{
				{Name: state.ActionReopen, From: state.Done, To: state.Open},
			}))
			Expect(state.WorkItemStateMachine.AvailableTransitions(state.Cancelled, "")).To(Equal([]state.Transition{
				{Name: state.ActionReopen, From: state.Cancelled, To: state.Open},
			}))
		})

		It("should filter transitions by target status too", func() {
			Expect(state.WorkItemStateMachine.AvailableTransitions(state.Open, state.Done)).To(BeEmpty())
			Expect(state.WorkItemStateMachine.AvailableTransitions("", state.Cancelled)).To(HaveLen(2))
		})
	})

	Describe("FindTransition", func() {
		It("should resolve an action against the current status", func() {
			transition, found := state.WorkItemStateMachine.FindTransition(state.ActionStart, state.Open)
			Expect(found).To(BeTrue())
			Expect(transition).To(Equal(state.Transition{Name: state.ActionStart, From: state.Open, To: state.InProgress}))

			transition, found = state.WorkItemStateMachine.FindTransition(state.ActionReopen, state.Cancelled)
			Expect(found).To(BeTrue())
			Expect(transition.To).To(Equal(state.Open))
		})

		It("should reject an action not permitted from the current status", func() {
			_, found := state.WorkItemStateMachine.FindTransition(state.ActionStop, state.Open)
			Expect(found).To(BeFalse())
			_, found = state.WorkItemStateMachine.FindTransition(state.ActionStart, state.InProgress)
			Expect(found).To(BeFalse())
			_, found = state.WorkItemStateMachine.FindTransition(state.ActionCancel, state.Done)
			Expect(found).To(BeFalse())
			_, found = state.WorkItemStateMachine.FindTransition("unknown", state.Open)
			Expect(found).To(BeFalse())
		})
	})
})
