// Package gateway defines the provider‑agnostic abstractions and concrete
// helpers for the two model capabilities ModePilot depends on: deciding a
// control mode for the current situation and summarizing operator feedback
// into reusable rules.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Normalize prompt construction and reply parsing across vendors
//   - Bound transient provider failures with a retry decorator (WithRetry)
//   - Facilitate lightweight mocking for tests (MockGateway)
//
// Providers (e.g. OpenAI, Anthropic) implement the Gateway interface from
// this package so higher layers (engine, learning loop) remain decoupled
// from vendor SDKs.
package gateway
