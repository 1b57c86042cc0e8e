//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"google.golang.org/protobuf/types/known/structpb"
)

// Actor identifies who sent an input, for the daemon's logs.
type Actor struct {
	Hostname string
	Username string
}

// DetectActor gathers host and user information for audit trail.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// Struct encodes the actor as the request "actor" field.
func (a *Actor) Struct() *structpb.Struct {
	if a == nil {
		return nil
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"hostname": structpb.NewStringValue(a.Hostname),
			"username": structpb.NewStringValue(a.Username),
		},
	}
}
