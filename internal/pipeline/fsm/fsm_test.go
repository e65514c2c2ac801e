// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fsm

import (
	"context"
	"errors"
	"testing"
)

type state string
type event string

const (
	stateInit state = "init"
	stateDone state = "done"
	stateFail state = "fail"

	eventOK   event = "ok"
	eventBoom event = "boom"
)

func TestMachine_FireAppliesTransition(t *testing.T) {
	m, err := New(stateInit, []Transition[state, event]{
		{From: stateInit, Event: eventOK, To: stateDone},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.Fire(context.Background(), eventOK)
	if err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if got != stateDone {
		t.Errorf("Fire() = %v, want %v", got, stateDone)
	}
	if m.State() != stateDone {
		t.Errorf("State() = %v, want %v", m.State(), stateDone)
	}
}

func TestMachine_InvalidTransitionRejected(t *testing.T) {
	m, err := New(stateInit, []Transition[state, event]{
		{From: stateInit, Event: eventOK, To: stateDone},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Fire(context.Background(), eventBoom); err == nil {
		t.Fatal("expected error for event with no matching transition")
	}
	if m.State() != stateInit {
		t.Errorf("state should be unchanged after rejected transition, got %v", m.State())
	}
}

func TestMachine_GuardBlocksTransition(t *testing.T) {
	guardErr := errors.New("guard refused")
	m, err := New(stateInit, []Transition[state, event]{
		{From: stateInit, Event: eventOK, To: stateDone, Guard: func(context.Context, state, event) error {
			return guardErr
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Fire(context.Background(), eventOK)
	if !errors.Is(err, guardErr) {
		t.Fatalf("Fire() error = %v, want %v", err, guardErr)
	}
	if m.State() != stateInit {
		t.Errorf("state should not advance when guard fails, got %v", m.State())
	}
}

func TestMachine_ActionErrorPreventsTransition(t *testing.T) {
	actionErr := errors.New("action failed")
	m, err := New(stateInit, []Transition[state, event]{
		{From: stateInit, Event: eventOK, To: stateDone, Action: func(context.Context, state, state, event) error {
			return actionErr
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Fire(context.Background(), eventOK)
	if !errors.Is(err, actionErr) {
		t.Fatalf("Fire() error = %v, want %v", err, actionErr)
	}
	if m.State() != stateInit {
		t.Errorf("state should not advance when action fails, got %v", m.State())
	}
}

func TestNew_DuplicateTransitionRejected(t *testing.T) {
	_, err := New(stateInit, []Transition[state, event]{
		{From: stateInit, Event: eventOK, To: stateDone},
		{From: stateInit, Event: eventOK, To: stateFail},
	})
	if err == nil {
		t.Fatal("expected error for duplicate (from, event) transition")
	}
}
