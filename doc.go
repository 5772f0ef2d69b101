// Package flatjson provides:
//
// - A schema-bound codec between JSON text and FlatBuffers binary buffers (Parse/GenerateText)
// - Ordered, lazily loaded schema modules with a strict or tolerant load policy
// - Bounded structural verification before a buffer is trusted (IsValid/Verify)
// - An explicit codec pool with check-out/check-in leases
// - A stable error model via Issues (JSON Pointer, code, message)
//
// Design policy:
// - Keep only public APIs in the root package; put the schema engine under internal/.
// - Place the resource generator under internal/embedgen and its CLI under cmd/fbsembed.
// - Prefer black-box testing against public APIs.
//
// A Codec is not safe for concurrent use. Hand each goroutine its own codec,
// for example through a Pool.
//
// Typical usage:
//
//	c, err := flatjson.NewCodec[monster.Monster](flatjson.Modules(monster.MonsterRc{}))
//	if err := c.Parse(data); err != nil { ... }
//	if !c.IsValid() { ... }
//	hp := c.Root().Hp()
//	text, err := c.Text()
package flatjson
