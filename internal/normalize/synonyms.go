package normalize

// synonyms maps abbreviations to the full word stored in the index. Values are
// never keys of a different mapping, so expansion is idempotent.
var synonyms = map[string]string{
	// Directionals.
	"N":  "NORTH",
	"S":  "SOUTH",
	"E":  "EAST",
	"W":  "WEST",
	"NE": "NORTHEAST",
	"NW": "NORTHWEST",
	"SE": "SOUTHEAST",
	"SW": "SOUTHWEST",

	// USPS street suffixes (Publication 28, appendix C1), common variants included.
	"ALY":   "ALLEY",
	"ALLY":  "ALLEY",
	"ANX":   "ANNEX",
	"ARC":   "ARCADE",
	"AVE":   "AVENUE",
	"AV":    "AVENUE",
	"AVN":   "AVENUE",
	"AVEN":  "AVENUE",
	"BYU":   "BAYOU",
	"BCH":   "BEACH",
	"BND":   "BEND",
	"BLF":   "BLUFF",
	"BLFS":  "BLUFFS",
	"BTM":   "BOTTOM",
	"BLVD":  "BOULEVARD",
	"BOUL":  "BOULEVARD",
	"BR":    "BRANCH",
	"BRG":   "BRIDGE",
	"BRK":   "BROOK",
	"BRKS":  "BROOKS",
	"BG":    "BURG",
	"BYP":   "BYPASS",
	"CP":    "CAMP",
	"CYN":   "CANYON",
	"CPE":   "CAPE",
	"CSWY":  "CAUSEWAY",
	"CTR":   "CENTER",
	"CNTR":  "CENTER",
	"CIR":   "CIRCLE",
	"CIRC":  "CIRCLE",
	"CRCL":  "CIRCLE",
	"CIRS":  "CIRCLES",
	"CLF":   "CLIFF",
	"CLFS":  "CLIFFS",
	"CLB":   "CLUB",
	"CMN":   "COMMON",
	"CMNS":  "COMMONS",
	"COR":   "CORNER",
	"CORS":  "CORNERS",
	"CRSE":  "COURSE",
	"CT":    "COURT",
	"CRT":   "COURT",
	"CTS":   "COURTS",
	"CV":    "COVE",
	"CVS":   "COVES",
	"CRK":   "CREEK",
	"CRES":  "CRESCENT",
	"CRST":  "CREST",
	"XING":  "CROSSING",
	"XRD":   "CROSSROAD",
	"CURV":  "CURVE",
	"DL":    "DALE",
	"DM":    "DAM",
	"DV":    "DIVIDE",
	"DR":    "DRIVE",
	"DRV":   "DRIVE",
	"DRIV":  "DRIVE",
	"DRS":   "DRIVES",
	"EST":   "ESTATE",
	"ESTS":  "ESTATES",
	"EXPY":  "EXPRESSWAY",
	"EXPWY": "EXPRESSWAY",
	"EXPR":  "EXPRESSWAY",
	"EXT":   "EXTENSION",
	"EXTS":  "EXTENSIONS",
	"FLS":   "FALLS",
	"FRY":   "FERRY",
	"FLD":   "FIELD",
	"FLDS":  "FIELDS",
	"FLT":   "FLAT",
	"FLTS":  "FLATS",
	"FRD":   "FORD",
	"FRDS":  "FORDS",
	"FRST":  "FOREST",
	"FRG":   "FORGE",
	"FRGS":  "FORGES",
	"FRK":   "FORK",
	"FRKS":  "FORKS",
	"FT":    "FORT",
	"FWY":   "FREEWAY",
	"FRWY":  "FREEWAY",
	"GDN":   "GARDEN",
	"GDNS":  "GARDENS",
	"GTWY":  "GATEWAY",
	"GLN":   "GLEN",
	"GLNS":  "GLENS",
	"GRN":   "GREEN",
	"GRNS":  "GREENS",
	"GRV":   "GROVE",
	"GRVS":  "GROVES",
	"HBR":   "HARBOR",
	"HBRS":  "HARBORS",
	"HVN":   "HAVEN",
	"HTS":   "HEIGHTS",
	"HWY":   "HIGHWAY",
	"HIWAY": "HIGHWAY",
	"HIWY":  "HIGHWAY",
	"HWAY":  "HIGHWAY",
	"HL":    "HILL",
	"HLS":   "HILLS",
	"HOLW":  "HOLLOW",
	"INLT":  "INLET",
	"IS":    "ISLAND",
	"ISS":   "ISLANDS",
	"JCT":   "JUNCTION",
	"JCTS":  "JUNCTIONS",
	"KNL":   "KNOLL",
	"KNLS":  "KNOLLS",
	"LK":    "LAKE",
	"LKS":   "LAKES",
	"LNDG":  "LANDING",
	"LN":    "LANE",
	"LGT":   "LIGHT",
	"LGTS":  "LIGHTS",
	"LF":    "LOAF",
	"LCK":   "LOCK",
	"LCKS":  "LOCKS",
	"LDG":   "LODGE",
	"MNR":   "MANOR",
	"MNRS":  "MANORS",
	"MDW":   "MEADOW",
	"MDWS":  "MEADOWS",
	"ML":    "MILL",
	"MLS":   "MILLS",
	"MSN":   "MISSION",
	"MTWY":  "MOTORWAY",
	"MT":    "MOUNT",
	"MTN":   "MOUNTAIN",
	"MTNS":  "MOUNTAINS",
	"NCK":   "NECK",
	"ORCH":  "ORCHARD",
	"OPAS":  "OVERPASS",
	"PKWY":  "PARKWAY",
	"PKY":   "PARKWAY",
	"PKWAY": "PARKWAY",
	"PKWYS": "PARKWAYS",
	"PSGE":  "PASSAGE",
	"PNE":   "PINE",
	"PNES":  "PINES",
	"PL":    "PLACE",
	"PLN":   "PLAIN",
	"PLNS":  "PLAINS",
	"PLZ":   "PLAZA",
	"PT":    "POINT",
	"PTS":   "POINTS",
	"PRT":   "PORT",
	"PRTS":  "PORTS",
	"PR":    "PRAIRIE",
	"RADL":  "RADIAL",
	"RNCH":  "RANCH",
	"RPD":   "RAPID",
	"RPDS":  "RAPIDS",
	"RST":   "REST",
	"RDG":   "RIDGE",
	"RDGS":  "RIDGES",
	"RIV":   "RIVER",
	"RD":    "ROAD",
	"RDS":   "ROADS",
	"RTE":   "ROUTE",
	"SHL":   "SHOAL",
	"SHLS":  "SHOALS",
	"SHR":   "SHORE",
	"SHRS":  "SHORES",
	"SKWY":  "SKYWAY",
	"SPG":   "SPRING",
	"SPGS":  "SPRINGS",
	"SQ":    "SQUARE",
	"SQS":   "SQUARES",
	"STA":   "STATION",
	"STRA":  "STRAVENUE",
	"STRM":  "STREAM",
	"ST":    "STREET",
	"STR":   "STREET",
	"STRT":  "STREET",
	"STS":   "STREETS",
	"SMT":   "SUMMIT",
	"TER":   "TERRACE",
	"TERR":  "TERRACE",
	"TRWY":  "THROUGHWAY",
	"TRCE":  "TRACE",
	"TRAK":  "TRACK",
	"TRFY":  "TRAFFICWAY",
	"TRL":   "TRAIL",
	"TRLR":  "TRAILER",
	"TUNL":  "TUNNEL",
	"TPKE":  "TURNPIKE",
	"UPAS":  "UNDERPASS",
	"UN":    "UNION",
	"VLY":   "VALLEY",
	"VLYS":  "VALLEYS",
	"VIA":   "VIADUCT",
	"VW":    "VIEW",
	"VWS":   "VIEWS",
	"VLG":   "VILLAGE",
	"VLGS":  "VILLAGES",
	"VL":    "VILLE",
	"VIS":   "VISTA",
	"WL":    "WELL",
	"WLS":   "WELLS",

	// Secondary unit designators.
	"APT":  "APARTMENT",
	"BLDG": "BUILDING",
	"DEPT": "DEPARTMENT",
	"RM":   "ROOM",
	"STE":  "SUITE",
	"SPC":  "SPACE",
	"FRNT": "FRONT",
	"BSMT": "BASEMENT",
	"PH":   "PENTHOUSE",
	"OFC":  "OFFICE",
	"LBBY": "LOBBY",
}
