package flatjson_test

import (
	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/reoring/flatjson"
)

const weaponSchema = `
namespace Game.Sample;

enum Color : byte { Red = 0, Green, Blue = 2 }

table Weapon {
  name: string;
  damage: short;
}
`

const monsterSchema = `
include "weapon.fbs";

namespace Game.Sample;

table Monster {
  name: string;
  hp: short = 100;
  color: Color = Blue;
  weapons: [Weapon];
}

root_type Monster;
`

// resource mimics a type generated by fbsembed.
type resource struct{ data, path string }

func (r resource) Data() string      { return r.data }
func (r resource) Path() string      { return r.path }
func (r resource) Directory() string { return "game" }

var (
	weaponRc  = resource{weaponSchema, "game/weapon.fbs"}
	monsterRc = resource{monsterSchema, "game/monster.fbs"}
)

func monsterModules() []flatjson.SchemaModule { return flatjson.Modules(weaponRc, monsterRc) }

// Monster is written the way flatc --go writes table accessors.
type Monster struct {
	_tab flatbuffers.Table
}

func (rcv *Monster) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Monster) Table() flatbuffers.Table { return rcv._tab }

func (rcv *Monster) FullyQualifiedName() string { return "Game.Sample.Monster" }

func (rcv *Monster) Name() []byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.ByteVector(o + rcv._tab.Pos)
	}
	return nil
}

func (rcv *Monster) Hp() int16 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetInt16(o + rcv._tab.Pos)
	}
	return 100
}

func (rcv *Monster) Color() int8 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.GetInt8(o + rcv._tab.Pos)
	}
	return 2
}

func (rcv *Monster) WeaponsLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func newMonsterCodec(opts ...flatjson.Option) *flatjson.Codec[Monster, *Monster] {
	return flatjson.MustCodec[Monster](monsterModules(), opts...)
}
