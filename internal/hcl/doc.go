// Package hcl provides the HCL implementation of config.Loader and the
// invocation manifest reader used when classweave runs outside a host build
// tool. It is responsible for file discovery, parsing, expression evaluation
// and translation into the config and artifact models.
package hcl
