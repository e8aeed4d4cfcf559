// Package models provides shared data structures for the Kabinet project.
//
// This package contains the resource mirrors returned by the Kabinet, Kuay and
// Konviktion GraphQL services. The SDK decodes responses into them, the
// development server encodes them, and the CLI prints them. Keeping them in a
// separate package lets every component import them without cycles.
//
// The models in this package represent:
//   - Backends: compute providers that declared themselves to Kabinet
//   - Releases and Flavours: installable app versions and their container images
//   - Definitions: task definitions (nodes) implemented by flavours
//   - Deployments: a flavour deployed on a backend
//   - Pods: running instances of a deployment
//   - Resources: compute resources offered by a backend
//   - GithubRepos: source repositories that flavours are built from
//
// Values are read-only mirrors of server state. They carry JSON tags matching
// the GraphQL field names and are never mutated after decoding.
package models
