package storage

import "time"

// Scheduler 보드 저장 시점 결정기.
// 상태 변경마다 Touch로 dirty 플래그를 세우고 마감 시각을 debounce 만큼 미룬다.
// 주기적인 Poll이 마감 시각이 지났거나 강제 flush 주기가 돌아왔을 때 true를 반환한다.
// 엔진 루프가 소유하며 동시 사용은 안전하지 않다.
type Scheduler struct {
	debounce   time.Duration
	forceEvery time.Duration

	dirty      bool
	deadline   time.Time
	nextForced time.Time
}

// NewScheduler now 기준으로 첫 강제 flush 시각을 잡는다
func NewScheduler(debounce, forceEvery time.Duration, now time.Time) *Scheduler {
	return &Scheduler{
		debounce:   debounce,
		forceEvery: forceEvery,
		nextForced: now.Add(forceEvery),
	}
}

// Touch 변경 발생. 대기 중인 저장을 취소하고 다시 예약한다.
func (s *Scheduler) Touch(now time.Time) {
	s.dirty = true
	s.deadline = now.Add(s.debounce)
}

// Poll 지금 저장해야 하면 true. true를 반환하면 dirty가 해제된다.
func (s *Scheduler) Poll(now time.Time) bool {
	forced := false
	if !now.Before(s.nextForced) {
		forced = true
		missed := now.Sub(s.nextForced)/s.forceEvery + 1
		s.nextForced = s.nextForced.Add(missed * s.forceEvery)
	}
	if !s.dirty {
		return false
	}
	if forced || !now.Before(s.deadline) {
		s.dirty = false
		return true
	}
	return false
}

// MarkFailed 저장 실패. 다음 Touch 또는 강제 flush 때 다시 시도한다.
func (s *Scheduler) MarkFailed() {
	if s.dirty {
		return
	}
	s.dirty = true
	s.deadline = s.nextForced
}

// Pending 저장 대기 중인 변경이 있는지
func (s *Scheduler) Pending() bool {
	return s.dirty
}
