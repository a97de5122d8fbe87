package currency

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type unitPair struct {
	from, to Unit
}

// Registry holds the known units and the conversions declared between them.
// Conversions are directional: declaring WETH->ETH does not imply ETH->WETH.
type Registry struct {
	mu    sync.RWMutex
	units map[Unit]struct{}
	rates map[unitPair]decimal.Decimal
}

// NewRegistry creates a registry with the given units.
func NewRegistry(units ...Unit) *Registry {
	r := &Registry{
		units: make(map[Unit]struct{}),
		rates: make(map[unitPair]decimal.Decimal),
	}
	for _, u := range units {
		r.units[u] = struct{}{}
	}
	return r
}

// Register adds a unit. Registering an existing unit is a no-op.
func (r *Registry) Register(u Unit) error {
	if u == "" {
		return fmt.Errorf("%w: empty unit", ErrUnknownUnit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[u] = struct{}{}
	return nil
}

// DeclareConversion declares that 1 from equals rate to.
func (r *Registry) DeclareConversion(from, to Unit, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: conversion rate %s->%s must be positive, got %s", ErrInvalidAmount, from, to, rate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range []Unit{from, to} {
		if _, ok := r.units[u]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownUnit, u)
		}
	}
	r.rates[unitPair{from, to}] = rate
	return nil
}

// Lookup returns ErrUnknownUnit if u is not registered.
func (r *Registry) Lookup(u Unit) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.units[u]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, u)
	}
	return nil
}

// Units returns all registered units in sorted order.
func (r *Registry) Units() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Unit, 0, len(r.units))
	for u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Convert expresses a in unit to using a declared conversion.
// Converting to the same unit returns a unchanged. The unlimited sentinel
// stays unlimited.
func (r *Registry) Convert(a Amount, to Unit) (Amount, error) {
	if err := r.Lookup(a.unit); err != nil {
		return Amount{}, err
	}
	if err := r.Lookup(to); err != nil {
		return Amount{}, err
	}
	if a.unit == to {
		return a, nil
	}
	if a.unlimited {
		return Unlimited(to), nil
	}

	r.mu.RLock()
	rate, ok := r.rates[unitPair{a.unit, to}]
	r.mu.RUnlock()
	if !ok {
		return Amount{}, fmt.Errorf("%w: no conversion declared from %s to %s", ErrUnitMismatch, a.unit, to)
	}
	return NewAmount(a.value.Mul(rate), to), nil
}
