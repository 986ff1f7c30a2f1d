// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

// Package auth provides authentication primitives for SkillForge.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their respective
// constructors:
//   - NewUser - creates a User with validated username and password hash
//   - NewSession - creates a Session bound to a user with an absolute expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, login, logout, password changes
//   - SessionManager - issues, validates, revokes opaque session tokens
//   - Guard - resolves inbound tokens to identities and enforces roles
//
// All rejection paths on the Guard are deliberately collapsed into a single
// unauthenticated outcome so callers cannot distinguish a missing token from
// an expired or unknown one.
package auth
