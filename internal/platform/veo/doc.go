// Package veo integrates with Google's Veo video models through the
// genai SDK. It owns everything SDK- and transport-specific: submitting
// generation requests, refreshing long-running operations, downloading
// finished artifacts with the API key appended to the signed URI, and
// converting SDK errors into the domain's RemoteError carrier so the
// failure classifier never sees raw SDK types.
package veo
