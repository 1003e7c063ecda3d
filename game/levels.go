package game

import "slices"

const (
	WorldWidth  = 800
	WorldHeight = 450
)

type levelTemplate struct {
	name      string
	platforms []Platform
	enemies   []Enemy
	zeldina   Zeldina
}

// levels 静态关卡模板，加载时深拷贝，永不原地修改
var levels = []levelTemplate{
	{
		name: "Greenfield",
		platforms: []Platform{
			{X: 0, Y: WorldHeight - 20, W: WorldWidth, H: 20, Type: PlatformNormal},
			{X: 200, Y: 300, W: 100, H: 20, Type: PlatformMoving},
			{X: 400, Y: 200, W: 100, H: 20, Type: PlatformFading},
		},
		enemies: []Enemy{
			{Pos: Vec{X: 600, Y: 400}, Color: "green", Name: "Gumpa", Speed: 2, Health: 30},
			{Pos: Vec{X: 700, Y: 400}, Color: "blue", Name: "Stende", Speed: -2, Health: 30},
		},
		zeldina: Zeldina{X: 700, Y: WorldHeight - 60},
	},
	{
		name: "Enchanted Desert",
		platforms: []Platform{
			{X: 0, Y: WorldHeight - 20, W: WorldWidth, H: 20, Type: PlatformNormal},
			{X: 100, Y: 350, W: 100, H: 20, Type: PlatformNormal},
			{X: 300, Y: 250, W: 100, H: 20, Type: PlatformMoving},
		},
		enemies: []Enemy{
			{Pos: Vec{X: 500, Y: 300}, Color: "yellow", Name: "Turtle", Speed: 1, Health: 40},
			{Pos: Vec{X: 600, Y: 200}, Color: "red", Name: "Fish", Speed: -2, Health: 35},
		},
		zeldina: Zeldina{X: 700, Y: WorldHeight - 60},
	},
	{
		name: "Ranka",
		platforms: []Platform{
			{X: 0, Y: WorldHeight - 20, W: WorldWidth, H: 20, Type: PlatformNormal},
			{X: 150, Y: 320, W: 80, H: 20, Type: PlatformMoving},
			{X: 450, Y: 220, W: 120, H: 20, Type: PlatformNormal},
		},
		enemies: []Enemy{
			{Pos: Vec{X: 400, Y: 400}, Color: "green", Name: "Dragon", Speed: 3, Health: 60},
		},
		zeldina: Zeldina{X: 700, Y: WorldHeight - 60},
	},
	{
		name: "Ruins",
		platforms: []Platform{
			{X: 0, Y: WorldHeight - 20, W: WorldWidth, H: 20, Type: PlatformNormal},
			{X: 250, Y: 280, W: 100, H: 20, Type: PlatformFading},
			{X: 500, Y: 180, W: 100, H: 20, Type: PlatformNormal},
		},
		enemies: []Enemy{
			{Pos: Vec{X: 300, Y: 400}, Color: "red", Name: "Dungeon Creature", Speed: 2, Health: 50},
			{Pos: Vec{X: 550, Y: 180}, Color: "blue", Name: "Gumpa", Speed: -1, Health: 30},
		},
		zeldina: Zeldina{X: 700, Y: WorldHeight - 60},
	},
}

// LevelCount 关卡总数
func LevelCount() int { return len(levels) }

// LevelName 返回关卡名，越界返回空串
func LevelName(n int) string {
	if n < 0 || n >= len(levels) {
		return ""
	}
	return levels[n].name
}

// instantiate 生成与模板互不共享内存的关卡实例
func (t levelTemplate) instantiate() ([]Platform, []Enemy, *Zeldina) {
	z := t.zeldina
	return slices.Clone(t.platforms), slices.Clone(t.enemies), &z
}
