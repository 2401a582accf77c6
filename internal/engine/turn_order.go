package engine

// PickCycle is the snake draft: each team picks twice in a row after the
// opening pick.
var PickCycle = []int{
	0,
	1,
	1,
	0,
}

// PickingOrder yields the picking team for every pick of one draft, forever.
// Each draft owns its own PickingOrder.
type PickingOrder struct {
	cursor int
}

func NewPickingOrder() *PickingOrder { return &PickingOrder{} }

func (o *PickingOrder) Next() int {
	team := PickCycle[o.cursor%len(PickCycle)]
	o.cursor++
	return team
}
