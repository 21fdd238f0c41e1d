package config

import (
	"fmt"
	"time"

	"github.com/muurk/ctrlpanel/internal/remote"
)

// registryVersion is the only registry format understood
const registryVersion = 1

// Registry is the list of known devices.
type Registry struct {
	Version int `yaml:"version"`
	// NextID numbers generated names (Remote1, Remote2, ...). It only grows.
	NextID  int       `yaml:"next_id"`
	Remotes []*Remote `yaml:"remotes"`

	path string
}

// Remote is one saved device.
type Remote struct {
	Name          string    `yaml:"name"`
	Address       string    `yaml:"address"`
	AddedAt       time.Time `yaml:"added_at,omitempty"`
	LastConnected time.Time `yaml:"last_connected,omitempty"`
}

// RemoteAddress parses the saved address.
func (r *Remote) RemoteAddress() (remote.Address, error) {
	return remote.Parse(r.Address)
}

// NewRegistry creates an empty registry that saves to path.
func NewRegistry(path string) *Registry {
	return &Registry{Version: registryVersion, NextID: 1, path: path}
}

// Path returns the file the registry saves to.
func (r *Registry) Path() string { return r.path }

// Get returns the remote called name, or nil.
func (r *Registry) Get(name string) *Remote {
	for _, rem := range r.Remotes {
		if rem.Name == name {
			return rem
		}
	}
	return nil
}

// FindByAddress returns the first remote saved with addr, or nil.
func (r *Registry) FindByAddress(addr remote.Address) *Remote {
	for _, rem := range r.Remotes {
		if a, err := rem.RemoteAddress(); err == nil && a == addr {
			return rem
		}
	}
	return nil
}

// nextName returns the next unused generated name.
func (r *Registry) nextName() string {
	if r.NextID < 1 {
		r.NextID = 1
	}
	for {
		name := fmt.Sprintf("Remote%d", r.NextID)
		r.NextID++
		if r.Get(name) == nil {
			return name
		}
	}
}

// Add saves a new remote. An empty name is replaced by a generated one.
func (r *Registry) Add(name, address string) (*Remote, error) {
	addr, err := remote.Parse(address)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = r.nextName()
	} else if r.Get(name) != nil {
		return nil, fmt.Errorf("remote %q already exists", name)
	}

	rem := &Remote{Name: name, Address: addr.String(), AddedAt: time.Now().UTC()}
	r.Remotes = append(r.Remotes, rem)
	return rem, nil
}

// Update changes the name and address of the remote called name.
// An empty newName keeps the current name.
func (r *Registry) Update(name, newName, address string) error {
	rem := r.Get(name)
	if rem == nil {
		return fmt.Errorf("remote %q not found", name)
	}
	addr, err := remote.Parse(address)
	if err != nil {
		return err
	}
	if newName != "" && newName != name {
		if r.Get(newName) != nil {
			return fmt.Errorf("remote %q already exists", newName)
		}
		rem.Name = newName
	}
	rem.Address = addr.String()
	return nil
}

// Remove deletes the remote called name and reports whether it existed.
func (r *Registry) Remove(name string) bool {
	for i, rem := range r.Remotes {
		if rem.Name == name {
			r.Remotes = append(r.Remotes[:i], r.Remotes[i+1:]...)
			return true
		}
	}
	return false
}

// MarkConnected records a successful connection to the remote called name.
func (r *Registry) MarkConnected(name string) {
	if rem := r.Get(name); rem != nil {
		rem.LastConnected = time.Now().UTC()
	}
}
