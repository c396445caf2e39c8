package models

import "time"

// HomeCategories are the sections shown on the storefront home page, in order.
var HomeCategories = []string{"Eletrônicos", "Espadas", "Poções", "Armaduras"}

const HomeItemsPerSection = 5

type HomeSection struct {
	Category string    `json:"category"`
	Products []Product `json:"products"`
}

type HomePage struct {
	Sections []HomeSection `json:"sections"`
	CachedAt time.Time     `json:"cached_at"`
}
