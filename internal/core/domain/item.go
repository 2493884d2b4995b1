package domain

type Item struct {
	ID   int64
	Name string
}
