//go:build !race

package orders

func passwordHashCost() int {
	return 14
}
