package value

import "bytes"

// Equal implements Value structural equality per spec §3/§4.1:
//   - Null is never equal to anything, including another Null.
//   - Empty is never equal to anything outside the Set-dedup context,
//     which calls dedupKey directly rather than Equal.
//   - Otherwise equality is structural, tag-then-payload.
func Equal(a, b Value) bool {
	if a.Tag == TagNull || b.Tag == TagNull {
		return false
	}
	if a.Tag == TagEmpty || b.Tag == TagEmpty {
		return false
	}
	if a.Tag != b.Tag {
		// Int/Float cross-type equality is permitted: 1 == 1.0.
		if a.IsNumeric() && b.IsNumeric() {
			return a.AsFloat() == b.AsFloat()
		}
		return false
	}
	switch a.Tag {
	case TagBool:
		return a.Bool == b.Bool
	case TagInt:
		return a.Int == b.Int
	case TagFloat:
		return a.Float == b.Float
	case TagStr:
		return a.Str == b.Str
	case TagDate:
		return a.Date == b.Date
	case TagTime:
		return a.Time == b.Time
	case TagDateTime:
		return a.DateTime == b.DateTime
	case TagList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case TagMap:
		return a.mapVal.Equal(b.mapVal)
	case TagSet:
		return a.setVal.Equal(b.setVal)
	case TagVertex:
		return bytes.Equal(a.Vertex.VID, b.Vertex.VID)
	case TagEdge:
		return bytes.Equal(a.Edge.Src, b.Edge.Src) &&
			bytes.Equal(a.Edge.Dst, b.Edge.Dst) &&
			a.Edge.Type == b.Edge.Type &&
			a.Edge.Rank == b.Edge.Rank &&
			a.Edge.Name == b.Edge.Name
	case TagPath:
		if len(a.Path.Steps) != len(b.Path.Steps) {
			return false
		}
		if !bytes.Equal(a.Path.Src.VID, b.Path.Src.VID) {
			return false
		}
		for i := range a.Path.Steps {
			if !bytes.Equal(a.Path.Steps[i].Dst.VID, b.Path.Steps[i].Dst.VID) {
				return false
			}
		}
		return true
	case TagDataSet:
		return false // DataSet equality is not defined by the spec; never collapses.
	}
	return false
}

// typeOrder gives the fixed tag order used for cross-type comparisons
// (spec §4.1): Null < Empty < Bool < Int/Float < Str < Date < Time <
// DateTime < List < Map < Set < Vertex < Edge < Path < DataSet.
func typeOrder(t Tag) int {
	switch t {
	case TagNull:
		return 0
	case TagEmpty:
		return 1
	case TagBool:
		return 2
	case TagInt, TagFloat:
		return 3
	case TagStr:
		return 4
	case TagDate:
		return 5
	case TagTime:
		return 6
	case TagDateTime:
		return 7
	case TagList:
		return 8
	case TagMap:
		return 9
	case TagSet:
		return 10
	case TagVertex:
		return 11
	case TagEdge:
		return 12
	case TagPath:
		return 13
	case TagDataSet:
		return 14
	}
	return 99
}

// Compare provides a total, deterministic order over Values (spec §4.1/§3).
// NaN floats sort last among numerics. Null and Empty only compare equal
// to themselves under Compare (used for sorting, not equality).
func Compare(a, b Value) int {
	oa, ob := typeOrder(a.Tag), typeOrder(b.Tag)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}
	switch a.Tag {
	case TagNull, TagEmpty:
		return 0
	case TagBool:
		return boolCompare(a.Bool, b.Bool)
	case TagInt, TagFloat:
		return numericCompare(a, b)
	case TagStr:
		return stringsCompare(a.Str, b.Str)
	case TagDate:
		return compareDate(a.Date, b.Date)
	case TagTime:
		return compareTime(a.Time, b.Time)
	case TagDateTime:
		return compareDateTime(a.DateTime, b.DateTime)
	case TagList:
		return compareLists(a.List, b.List)
	case TagMap:
		return compareOrderedMaps(a.mapVal, b.mapVal)
	case TagSet:
		return compareInt(a.setVal.Len(), b.setVal.Len())
	case TagVertex:
		return bytes.Compare(a.Vertex.VID, b.Vertex.VID)
	case TagEdge:
		if c := bytes.Compare(a.Edge.Src, b.Edge.Src); c != 0 {
			return c
		}
		if c := bytes.Compare(a.Edge.Dst, b.Edge.Dst); c != 0 {
			return c
		}
		return compareInt64(a.Edge.Rank, b.Edge.Rank)
	case TagPath:
		return compareInt(len(a.Path.Steps), len(b.Path.Steps))
	case TagDataSet:
		return compareInt(len(a.DataSet.Rows), len(b.DataSet.Rows))
	}
	return 0
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// numericCompare orders Int/Float by natural numeric value, with NaN last.
func numericCompare(a, b Value) int {
	af, bf := a.AsFloat(), b.AsFloat()
	aNaN, bNaN := af != af, bf != bf
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func stringsCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareDate(a, b Date) int {
	if a.Year != b.Year {
		return compareInt(int(a.Year), int(b.Year))
	}
	if a.Month != b.Month {
		return compareInt(int(a.Month), int(b.Month))
	}
	return compareInt(int(a.Day), int(b.Day))
}

func compareTime(a, b Time) int {
	if a.Hour != b.Hour {
		return compareInt(int(a.Hour), int(b.Hour))
	}
	if a.Minute != b.Minute {
		return compareInt(int(a.Minute), int(b.Minute))
	}
	if a.Sec != b.Sec {
		return compareInt(int(a.Sec), int(b.Sec))
	}
	return compareInt(int(a.Micro), int(b.Micro))
}

func compareDateTime(a, b DateTime) int {
	if c := compareDate(Date{a.Year, a.Month, a.Day}, Date{b.Year, b.Month, b.Day}); c != 0 {
		return c
	}
	return compareTime(Time{a.Hour, a.Minute, a.Sec, a.Micro}, Time{b.Hour, b.Minute, b.Sec, b.Micro})
}

func compareLists(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

func compareOrderedMaps(a, b *OrderedMap) int {
	return compareInt(a.Len(), b.Len())
}
