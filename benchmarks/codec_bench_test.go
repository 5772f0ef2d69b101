package benchmarks_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/reoring/flatjson"
	"github.com/reoring/flatjson/examples/monster/sample"
)

// ---- Helpers ----

func newCodec(tb testing.TB) *flatjson.Codec[sample.Monster, *sample.Monster] {
	tb.Helper()
	c, err := flatjson.NewCodec[sample.Monster](flatjson.Modules(sample.MonsterRc{}))
	if err != nil {
		tb.Fatalf("codec: %v", err)
	}
	return c
}

func smallMonsterJSON() []byte {
	return []byte(`{"name":"Orc","hp":80,"color":"Green"}`)
}

// generateMonsterJSON returns a monster carrying numWeapons weapons and an
// inventory of numItems bytes.
func generateMonsterJSON(numWeapons, numItems int) []byte {
	var buf bytes.Buffer
	buf.Grow(numWeapons*40 + numItems*4 + 64)
	buf.WriteString(`{"name":"Dragon","pos":{"x":1,"y":2,"z":3},"inventory":[`)
	for i := 0; i < numItems; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(i % 256))
	}
	buf.WriteString(`],"weapons":[`)
	for i := 0; i < numWeapons; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"name":"w`)
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString(`","damage":`)
		buf.WriteString(strconv.Itoa(i % 100))
		buf.WriteByte('}')
	}
	buf.WriteString(`]}`)
	return buf.Bytes()
}

// ---- Benchmarks ----

func BenchmarkParse_Small(b *testing.B) {
	c := newCodec(b)
	data := smallMonsterJSON()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse_Large(b *testing.B) {
	c := newCodec(b)
	data := generateMonsterJSON(2000, 4096)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse_NonStrict(b *testing.B) {
	c := newCodec(b)
	c.SetStrictJSONKeys(false)
	data := []byte(`{name:"Orc",hp:80,color:Green,weapons:[{name:"Axe",},],}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVerify_Large(b *testing.B) {
	c := newCodec(b)
	if err := c.Parse(generateMonsterJSON(2000, 4096)); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(c.Len()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !c.IsValid() {
			b.Fatal("invalid buffer")
		}
	}
}

func BenchmarkGenerateText(b *testing.B) {
	for _, indent := range []int{-1, 2} {
		b.Run("indent="+strconv.Itoa(indent), func(b *testing.B) {
			c := newCodec(b)
			if err := c.Parse(generateMonsterJSON(2000, 4096)); err != nil {
				b.Fatal(err)
			}
			c.SetIndentStep(indent)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Text(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPool_GetRelease(b *testing.B) {
	pool, err := flatjson.NewPool[sample.Monster](flatjson.Modules(sample.MonsterRc{}))
	if err != nil {
		b.Fatal(err)
	}
	data := smallMonsterJSON()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l := pool.Get()
			if err := l.Codec().Parse(data); err != nil {
				b.Error(err)
			}
			l.Release()
		}
	})
}
