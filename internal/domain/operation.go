package domain

// Operation identifies a remote long-running generation job. It is
// created by submission and mutated only by poll responses from the
// remote service; once Done is true the value is terminal and never
// changes again.
type Operation struct {
	// Name is the opaque identifier the remote service assigned to the
	// operation. It is the only field needed to refresh the operation.
	Name string

	// Done reports whether the remote job has reached a terminal state.
	Done bool

	// Result holds the artifact reference of a successfully completed
	// operation. Nil until Done is true without an error.
	Result *ArtifactRef

	// Failure holds the remote error payload of a failed operation.
	// Nil unless Done is true with an error.
	Failure *RemoteError
}

// Succeeded reports whether the operation completed with a result.
func (o *Operation) Succeeded() bool {
	return o.Done && o.Failure == nil && o.Result != nil
}

// ArtifactRef is a retrievable reference to the final media produced by
// a terminal successful operation. The URI is not directly fetchable:
// the transport must append an authorization parameter before issuing
// the GET.
type ArtifactRef struct {
	// URI is the download location reported by the remote service.
	URI string

	// MIMEType is the media type of the artifact, when reported.
	MIMEType string
}
