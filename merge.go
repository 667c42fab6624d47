// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetrange

// MergeBlock is a maximal run of equal adjacent values in a column,
// given by natural (1-based, inclusive) row numbers.
type MergeBlock struct {
	Value       any
	First, Last int
}

// Len returns the number of rows covered.
func (b MergeBlock) Len() int { return b.Last - b.First + 1 }

// MergeBlocks partitions values, the first being at natural row firstRow,
// into maximal runs of equal values.
//
// Values are compared raw: no trimming, no case folding, two blanks are equal.
// The blocks cover every row exactly once, in order.
func MergeBlocks(values []any, firstRow int) []MergeBlock {
	var blocks []MergeBlock
	open := false
	var cur MergeBlock
	for i, v := range values {
		row := firstRow + i
		if open && equal(cur.Value, v) {
			cur.Last = row
			continue
		}
		if open {
			blocks = append(blocks, cur)
		}
		cur, open = MergeBlock{Value: v, First: row, Last: row}, true
	}
	if open {
		blocks = append(blocks, cur)
	}
	return blocks
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return cellString(a) == cellString(b)
	}
	return a == b
}
