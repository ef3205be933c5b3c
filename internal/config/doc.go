// Package config defines the typed plugin configuration for the transform
// pipeline and the Loader interface that produces it.
//
// The Config value is resolved once per invocation, validated, and then
// handed explicitly to every collaborator that needs it. No package keeps
// configuration in a global. Concrete loaders, such as the HCL one, live in
// separate packages.
package config
