package calendar

import "sort"

// assignLanes places overlapping blocks of one column side by side. Blocks
// are taken in start order and each goes to the first lane whose last block
// ends at or before its top. Every block in a cluster of transitively
// overlapping blocks shares the cluster's lane count.
func assignLanes(blocks []Block) {
	if len(blocks) == 0 {
		return
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Top != blocks[j].Top {
			return blocks[i].Top < blocks[j].Top
		}
		return blocks[i].Height > blocks[j].Height
	})

	var laneEnds []float64
	clusterStart := 0
	clusterBottom := blocks[0].Top

	closeCluster := func(end int) {
		for i := clusterStart; i < end; i++ {
			blocks[i].LaneCount = len(laneEnds)
		}
	}

	for i := range blocks {
		block := &blocks[i]
		if i > 0 && block.Top >= clusterBottom {
			closeCluster(i)
			laneEnds = laneEnds[:0]
			clusterStart = i
		}

		lane := -1
		for l, end := range laneEnds {
			if end <= block.Top {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, 0)
		}
		laneEnds[lane] = block.Bottom()
		block.Lane = lane
		if block.Bottom() > clusterBottom {
			clusterBottom = block.Bottom()
		}
	}
	closeCluster(len(blocks))
}

// placeInColumn spreads lane-assigned blocks across the column's width.
func placeInColumn(blocks []Block, column Column) {
	for i := range blocks {
		lanes := blocks[i].LaneCount
		if lanes < 1 {
			lanes = 1
		}
		width := column.Width / float64(lanes)
		blocks[i].X = column.X + float64(blocks[i].Lane)*width
		blocks[i].Width = width
	}
}
