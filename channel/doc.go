// Package channel houses concrete core.AgentChannel implementations. The
// interface itself lives in the core package to centralize domain contracts;
// keeping only implementations here prevents the chat orchestrator from
// depending on any concrete channel variant.
//
// Add additional variants (assistant-thread backed, remote, etc.) alongside
// ChatHistoryChannel without changing orchestration code - agents decide
// which variant to create through their CreateChannel method.
package channel
