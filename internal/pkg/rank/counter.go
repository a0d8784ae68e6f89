// Package rank содержит счетчик с детерминированным порядком рейтинга.
package rank

import "sort"

// Entry - ключ и накопленное значение.
type Entry[K comparable] struct {
	Key   K
	Count int
}

// Counter считает вхождения ключей и помнит порядок их первого появления.
// При равных значениях рейтинг упорядочен по первому появлению ключа.
type Counter[K comparable] struct {
	index map[K]int
	items []Entry[K]
}

// NewCounter создает пустой счетчик.
func NewCounter[K comparable]() *Counter[K] {
	return &Counter[K]{index: make(map[K]int)}
}

// Add увеличивает значение ключа на n.
func (c *Counter[K]) Add(key K, n int) {
	if i, ok := c.index[key]; ok {
		c.items[i].Count += n
		return
	}
	c.index[key] = len(c.items)
	c.items = append(c.items, Entry[K]{Key: key, Count: n})
}

// Inc увеличивает значение ключа на единицу.
func (c *Counter[K]) Inc(key K) {
	c.Add(key, 1)
}

// Get возвращает значение ключа.
func (c *Counter[K]) Get(key K) int {
	if i, ok := c.index[key]; ok {
		return c.items[i].Count
	}
	return 0
}

// Len возвращает число различных ключей.
func (c *Counter[K]) Len() int {
	return len(c.items)
}

// Total возвращает сумму всех значений.
func (c *Counter[K]) Total() int {
	total := 0
	for _, e := range c.items {
		total += e.Count
	}
	return total
}

// Entries возвращает копию записей в порядке первого появления.
func (c *Counter[K]) Entries() []Entry[K] {
	out := make([]Entry[K], len(c.items))
	copy(out, c.items)
	return out
}

// MostCommon возвращает не более n записей по убыванию значения.
// n <= 0 означает все записи. Записи с нулевым значением не включаются.
func (c *Counter[K]) MostCommon(n int) []Entry[K] {
	out := make([]Entry[K], 0, len(c.items))
	for _, e := range c.items {
		if e.Count > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
