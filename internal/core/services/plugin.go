package services

// PluginMetadata describes the item search plugin
type PluginMetadata struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// PluginInfo is the identity reported at startup and over HTTP
var PluginInfo = PluginMetadata{
	Name:        "jx3_item_search",
	Author:      "沐沐沐倾",
	Description: "查询剑网3物品百科信息，支持模糊搜索。",
	Version:     "1.0.0",
}
