// Package domain defines the core business entities for media-synthesis
// jobs: the remote long-running Operation, the ArtifactRef produced by a
// successful operation, the Job aggregate tracked by the service, and the
// closed failure taxonomy all downstream control flow switches on.
//
// The package is dependency-free by design. Remote SDK errors are
// converted into domain carriers (RemoteError) at the platform boundary
// so classification rules stay centralized and testable in isolation.
package domain
