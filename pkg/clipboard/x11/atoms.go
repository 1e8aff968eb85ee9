package x11

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/labi-le/astaroth/pkg/id"
)

type atomCache struct {
	Clipboard  xproto.Atom
	Primary    xproto.Atom
	Targets    xproto.Atom
	Timestamp  xproto.Atom
	Incr       xproto.Atom
	Utf8String xproto.Atom
	String     xproto.Atom
	Text       xproto.Atom
}

func loadAtoms(c *xgb.Conn) (*atomCache, error) {
	names := []string{
		"CLIPBOARD", "PRIMARY", "TARGETS", "TIMESTAMP", "INCR",
		"UTF8_STRING", "STRING", "TEXT",
	}

	cookies := make([]xproto.InternAtomCookie, len(names))
	for i, name := range names {
		cookies[i] = xproto.InternAtom(c, false, uint16(len(name)), name)
	}

	atoms := make([]xproto.Atom, len(names))
	for i, cookie := range cookies {
		reply, err := cookie.Reply()
		if err != nil {
			return nil, err
		}
		atoms[i] = reply.Atom
	}

	return &atomCache{
		Clipboard:  atoms[0],
		Primary:    atoms[1],
		Targets:    atoms[2],
		Timestamp:  atoms[3],
		Incr:       atoms[4],
		Utf8String: atoms[5],
		String:     atoms[6],
		Text:       atoms[7],
	}, nil
}

// text reports whether typ is one of the text representations we accept.
func (a *atomCache) text(typ xproto.Atom) bool {
	return typ == a.Utf8String || typ == a.String || typ == a.Text
}

// scratchProperty interns a destination property unique to one retrieval,
// so rapid or concurrent calls cannot observe each other's data.
func scratchProperty(c *xgb.Conn) (xproto.Atom, error) {
	name := fmt.Sprintf("ASTAROTH_SELECTION_%d", id.New())
	reply, err := xproto.InternAtom(c, false, uint16(len(name)), name).Reply()
	if err != nil {
		return xproto.AtomNone, err
	}
	return reply.Atom, nil
}
