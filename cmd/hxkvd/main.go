// Command hxkvd runs the hxkv data layer standalone: a thin daemon shell
// wiring configuration, a schema fixture (or an empty registry) and the
// store adapter/write engine/search planner/cleaner together, exposing
// only the metrics endpoint over the network. The CLI, wire protocol and
// coordinator that would normally sit in front of this layer are out of
// scope; production embedders link internal/datalayer directly.
package main

import "github.com/hxkv/hxkv/cmd/hxkvd/cmd"

func main() {
	cmd.Execute()
}
