package fonts

import (
	"bytes"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// closeOverGSUB adds every glyph reachable from keep through GSUB
// substitutions, so shaped output drawn later with the subset font still
// finds its ligatures and alternates. Contextual lookups are followed
// through their nested lookup records.
func closeOverGSUB(data []byte, keep map[uint16]bool) error {
	ld, err := ot.NewLoader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	raw, err := ld.RawTable(ot.MustNewTag("GSUB"))
	if err != nil {
		return err
	}
	layout, _, err := tables.ParseLayout(raw)
	if err != nil {
		return err
	}
	c := &gsubClosure{keep: keep}
	for _, lookup := range layout.LookupList.Lookups {
		subtables, err := lookup.AsGSUBLookups()
		if err != nil {
			subtables = nil
		}
		c.lookups = append(c.lookups, subtables)
	}
	for {
		before := len(keep)
		for i := range c.lookups {
			c.apply(i, make(map[int]bool))
		}
		if len(keep) == before {
			return nil
		}
	}
}

type gsubClosure struct {
	keep    map[uint16]bool
	lookups [][]tables.GSUBLookup
}

func (c *gsubClosure) add(gid tables.GlyphID) {
	c.keep[uint16(gid)] = true
}

// apply runs lookup idx over the current set. active guards against
// recursive lookup records.
func (c *gsubClosure) apply(idx int, active map[int]bool) {
	if idx < 0 || idx >= len(c.lookups) || active[idx] {
		return
	}
	active[idx] = true
	defer delete(active, idx)
	for _, st := range c.lookups[idx] {
		c.subtable(st, active)
	}
}

func (c *gsubClosure) covered(st tables.GSUBLookup) map[uint16]int {
	cov := st.Cov()
	out := make(map[uint16]int)
	for gid := range c.keep {
		if i, ok := cov.Index(tables.GlyphID(gid)); ok {
			out[gid] = i
		}
	}
	return out
}

func (c *gsubClosure) subtable(st tables.GSUBLookup, active map[int]bool) {
	switch t := st.(type) {
	case tables.ExtensionSubs:
		if inner := unwrapExtension(tables.Extension(t)); inner != nil {
			c.subtable(inner, active)
		}
		return
	case tables.ContextualSubs:
		if len(c.covered(st)) > 0 {
			c.nested(contextualRecords(t.Data), active)
		}
		return
	case tables.ChainedContextualSubs:
		if len(c.covered(st)) > 0 {
			c.nested(chainedRecords(t.Data), active)
		}
		return
	}

	for gid, i := range c.covered(st) {
		switch t := st.(type) {
		case tables.SingleSubs:
			switch d := t.Data.(type) {
			case tables.SingleSubstData1:
				c.add(tables.GlyphID(int(gid) + int(d.DeltaGlyphID)))
			case tables.SingleSubstData2:
				if i < len(d.SubstituteGlyphIDs) {
					c.add(d.SubstituteGlyphIDs[i])
				}
			}
		case tables.MultipleSubs:
			if i < len(t.Sequences) {
				for _, out := range t.Sequences[i].SubstituteGlyphIDs {
					c.add(out)
				}
			}
		case tables.AlternateSubs:
			if i < len(t.AlternateSets) {
				for _, out := range t.AlternateSets[i].AlternateGlyphIDs {
					c.add(out)
				}
			}
		case tables.LigatureSubs:
			if i >= len(t.LigatureSets) {
				continue
			}
			for _, lig := range t.LigatureSets[i].Ligatures {
				if c.hasAll(lig.ComponentGlyphIDs) {
					c.add(lig.LigatureGlyph)
				}
			}
		case tables.ReverseChainSingleSubs:
			if i < len(t.SubstituteGlyphIDs) {
				c.add(t.SubstituteGlyphIDs[i])
			}
		}
	}
}

func (c *gsubClosure) hasAll(gids []tables.GlyphID) bool {
	for _, g := range gids {
		if !c.keep[uint16(g)] {
			return false
		}
	}
	return true
}

func (c *gsubClosure) nested(records []tables.SequenceLookupRecord, active map[int]bool) {
	for _, rec := range records {
		c.apply(int(rec.LookupListIndex), active)
	}
}

func unwrapExtension(ext tables.Extension) tables.GSUBLookup {
	if int(ext.ExtensionOffset) >= len(ext.RawData) {
		return nil
	}
	data := ext.RawData[ext.ExtensionOffset:]
	switch ext.ExtensionLookupType {
	case 1:
		if s, _, err := tables.ParseSingleSubs(data); err == nil {
			return s
		}
	case 2:
		if s, _, err := tables.ParseMultipleSubs(data); err == nil {
			return s
		}
	case 3:
		if s, _, err := tables.ParseAlternateSubs(data); err == nil {
			return s
		}
	case 4:
		if s, _, err := tables.ParseLigatureSubs(data); err == nil {
			return s
		}
	}
	return nil
}

// contextualRecords collects every nested lookup record of a contextual
// subtable, regardless of the matched context.
func contextualRecords(data tables.ContextualSubsITF) []tables.SequenceLookupRecord {
	var out []tables.SequenceLookupRecord
	switch t := data.(type) {
	case tables.ContextualSubs1:
		for _, set := range tables.SequenceContextFormat1(t).SeqRuleSet {
			for _, rule := range set.SeqRule {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ContextualSubs2:
		for _, set := range tables.SequenceContextFormat2(t).ClassSeqRuleSet {
			for _, rule := range set.SeqRule {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ContextualSubs3:
		out = append(out, tables.SequenceContextFormat3(t).SeqLookupRecords...)
	}
	return out
}

func chainedRecords(data tables.ChainedContextualSubsITF) []tables.SequenceLookupRecord {
	var out []tables.SequenceLookupRecord
	switch t := data.(type) {
	case tables.ChainedContextualSubs1:
		for _, set := range tables.ChainedSequenceContextFormat1(t).ChainedSeqRuleSet {
			for _, rule := range set.ChainedSeqRules {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ChainedContextualSubs2:
		for _, set := range tables.ChainedSequenceContextFormat2(t).ChainedClassSeqRuleSet {
			for _, rule := range set.ChainedSeqRules {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ChainedContextualSubs3:
		out = append(out, tables.ChainedSequenceContextFormat3(t).SeqLookupRecords...)
	}
	return out
}
