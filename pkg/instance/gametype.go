package instance

// GameType identifies the kind of game server an instance runs. The value
// doubles as the URL segment of the create endpoint.
type GameType string

const (
	GameMinecraftJavaVanilla GameType = "minecraft-java-vanilla"
	GameMinecraftJavaForge   GameType = "minecraft-java-forge"
	GameMinecraftJavaFabric  GameType = "minecraft-java-fabric"
	GameMinecraftJavaPaper   GameType = "minecraft-java-paper"
)

// Flavour is the server distribution within a game type.
type Flavour string

const (
	FlavourVanilla Flavour = "vanilla"
	FlavourForge   Flavour = "forge"
	FlavourFabric  Flavour = "fabric"
	FlavourPaper   Flavour = "paper"
)

var gameFlavours = map[GameType]Flavour{
	GameMinecraftJavaVanilla: FlavourVanilla,
	GameMinecraftJavaForge:   FlavourForge,
	GameMinecraftJavaFabric:  FlavourFabric,
	GameMinecraftJavaPaper:   FlavourPaper,
}

// Valid reports whether g names a known game type.
func (g GameType) Valid() bool {
	_, ok := gameFlavours[g]
	return ok
}

// Flavour returns the server flavour for the game type, or the empty
// flavour when the game type is unknown.
func (g GameType) Flavour() Flavour {
	return gameFlavours[g]
}

func (g GameType) String() string {
	return string(g)
}
