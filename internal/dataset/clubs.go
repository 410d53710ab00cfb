package dataset

import "odds_grid/internal/domain"

var mlbClubs = []string{
	"Arizona Diamondbacks", "Atlanta Braves", "Baltimore Orioles", "Boston Red Sox",
	"Chicago Cubs", "Chicago White Sox", "Cincinnati Reds", "Cleveland Guardians",
	"Colorado Rockies", "Detroit Tigers", "Houston Astros", "Kansas City Royals",
	"Los Angeles Angels", "Los Angeles Dodgers", "Miami Marlins", "Milwaukee Brewers",
	"Minnesota Twins", "New York Mets", "New York Yankees", "Oakland Athletics",
	"Philadelphia Phillies", "Pittsburgh Pirates", "San Diego Padres", "San Francisco Giants",
	"Seattle Mariners", "St. Louis Cardinals", "Tampa Bay Rays", "Texas Rangers",
	"Toronto Blue Jays", "Washington Nationals",
}

var nbaClubs = []string{
	"Atlanta Hawks", "Boston Celtics", "Brooklyn Nets", "Charlotte Hornets",
	"Chicago Bulls", "Cleveland Cavaliers", "Dallas Mavericks", "Denver Nuggets",
	"Detroit Pistons", "Golden State Warriors", "Houston Rockets", "Indiana Pacers",
	"Los Angeles Clippers", "Los Angeles Lakers", "Memphis Grizzlies", "Miami Heat",
	"Milwaukee Bucks", "Minnesota Timberwolves", "New Orleans Pelicans", "New York Knicks",
	"Oklahoma City Thunder", "Orlando Magic", "Philadelphia 76ers", "Phoenix Suns",
	"Portland Trail Blazers", "Sacramento Kings", "San Antonio Spurs", "Toronto Raptors",
	"Utah Jazz", "Washington Wizards",
}

var nflClubs = []string{
	"Arizona Cardinals", "Atlanta Falcons", "Baltimore Ravens", "Buffalo Bills",
	"Carolina Panthers", "Chicago Bears", "Cincinnati Bengals", "Cleveland Browns",
	"Dallas Cowboys", "Denver Broncos", "Detroit Lions", "Green Bay Packers",
	"Houston Texans", "Indianapolis Colts", "Jacksonville Jaguars", "Kansas City Chiefs",
	"Las Vegas Raiders", "Los Angeles Chargers", "Los Angeles Rams", "Miami Dolphins",
	"Minnesota Vikings", "New England Patriots", "New Orleans Saints", "New York Giants",
	"New York Jets", "Philadelphia Eagles", "Pittsburgh Steelers", "San Francisco 49ers",
	"Seattle Seahawks", "Tampa Bay Buccaneers", "Tennessee Titans", "Washington Commanders",
}

var soccerClubs = []string{
	"Ajax", "Arsenal", "Aston Villa", "Atalanta", "Atletico Madrid", "Barcelona",
	"Bayer Leverkusen", "Bayern Munich", "Benfica", "Borussia Dortmund", "Celtic",
	"Chelsea", "Feyenoord", "Galatasaray", "Inter Milan", "Juventus", "Liverpool",
	"Manchester City", "Manchester United", "Marseille", "AC Milan", "Napoli",
	"Newcastle United", "Paris Saint-Germain", "Porto", "Real Madrid", "Roma",
	"Sevilla", "Sporting CP", "Tottenham Hotspur",
}

// clubs returns the team pool of a sport; unknown sports use the soccer pool.
func clubs(s domain.Sport) []string {
	switch s {
	case domain.SportBaseball:
		return mlbClubs
	case domain.SportBasketball:
		return nbaClubs
	case domain.SportFootball:
		return nflClubs
	default:
		return soccerClubs
	}
}
