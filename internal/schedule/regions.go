package schedule

import (
	"slices"
	"time"
)

// RegionGroup is a set of counties scheduled on the same weekday
type RegionGroup struct {
	Name    string
	Regions []string
}

var (
	SixMunicipalities = RegionGroup{Name: "六都", Regions: []string{"台北市", "新北市", "桃園市", "台中市", "台南市", "高雄市"}}
	North             = RegionGroup{Name: "北部", Regions: []string{"基隆市", "新竹市", "新竹縣", "苗栗縣", "宜蘭縣"}}
	Central           = RegionGroup{Name: "中部", Regions: []string{"彰化縣", "南投縣", "雲林縣", "嘉義市", "嘉義縣"}}
	SouthEast         = RegionGroup{Name: "南部東部", Regions: []string{"屏東縣", "花蓮縣", "台東縣", "澎湖縣"}}
	Islands           = RegionGroup{Name: "離島", Regions: []string{"金門縣", "連江縣"}}
)

// Groups returns every region group in rotation order
func Groups() []RegionGroup {
	return []RegionGroup{SixMunicipalities, North, Central, SouthEast, Islands}
}

// weekly maps weekdays to region groups; weekends are not scheduled
var weekly = map[time.Weekday]RegionGroup{
	time.Monday:    SixMunicipalities,
	time.Tuesday:   North,
	time.Wednesday: Central,
	time.Thursday:  SouthEast,
	time.Friday:    Islands,
}

// RegionsFor returns the regions scheduled on day
func RegionsFor(day time.Weekday) []string {
	group, ok := weekly[day]
	if !ok {
		return nil
	}
	return group.Regions
}

// AllRegions returns all 22 counties
func AllRegions() []string {
	var all []string
	for _, group := range Groups() {
		all = append(all, group.Regions...)
	}
	return all
}

// Priority ranks a region: municipalities first, then the north, then the rest
func Priority(region string) int {
	if slices.Contains(SixMunicipalities.Regions, region) {
		return 1
	}
	if slices.Contains(North.Regions, region) {
		return 2
	}
	return 3
}
