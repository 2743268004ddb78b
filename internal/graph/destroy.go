package graph

import "reflect"

// Destroyable is a live bean as seen by the teardown planner.
type Destroyable interface {
	BeanType() reflect.Type
	RequiredComponents() []reflect.Type
}

// DestroyOrder orders live beans for teardown so that a bean is destroyed before
// the beans it requires.
//
// Beans without required components form the tail of the order. The remaining
// beans are taken repeatedly, each once none of its required types is provided by
// another not-yet-placed bean, and placed ahead of everything already placed.
// When a cycle blocks progress the first blocked bean is placed anyway and
// reported in forced.
func DestroyOrder[T Destroyable](items []T) (order []T, forced []T) {
	var unsorted []T
	placed := make([]T, 0, len(items))

	for _, item := range items {
		if len(item.RequiredComponents()) == 0 {
			placed = append(placed, item)
		} else {
			unsorted = append(unsorted, item)
		}
	}

	// Items are prepended into front, reversed at the end.
	front := make([]T, 0, len(unsorted))

	for len(unsorted) > 0 {
		progressed := false

		for i := 0; i < len(unsorted); {
			item := unsorted[i]
			if requiresAnyOf(item, unsorted, i) {
				i++
				continue
			}

			front = append(front, item)
			unsorted = append(unsorted[:i], unsorted[i+1:]...)
			progressed = true
		}

		if !progressed {
			forced = append(forced, unsorted[0])
			front = append(front, unsorted[0])
			unsorted = unsorted[1:]
		}
	}

	order = make([]T, 0, len(items))
	for i := len(front) - 1; i >= 0; i-- {
		order = append(order, front[i])
	}
	order = append(order, placed...)

	return order, forced
}

// requiresAnyOf reports whether item needs a type provided by another entry of pool.
func requiresAnyOf[T Destroyable](item T, pool []T, self int) bool {
	for _, required := range item.RequiredComponents() {
		for j, other := range pool {
			if j == self {
				continue
			}
			if provides(other.BeanType(), required) {
				return true
			}
		}
	}
	return false
}

func provides(beanType, required reflect.Type) bool {
	if beanType == nil || required == nil {
		return false
	}
	return beanType == required || beanType.AssignableTo(required)
}
