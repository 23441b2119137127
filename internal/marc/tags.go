package marc

// nonRepeatableTags lists the tags a merged record may carry at most once.
var nonRepeatableTags = map[string]struct{}{
	"001": {}, "003": {}, "005": {}, "008": {},
	"010": {}, "018": {}, "036": {}, "038": {}, "040": {}, "042": {},
	"043": {}, "044": {}, "045": {}, "066": {},
	"100": {}, "110": {}, "111": {}, "130": {},
	"240": {}, "243": {}, "245": {}, "254": {}, "256": {}, "263": {},
	"306": {}, "357": {}, "384": {},
	"841": {}, "842": {}, "844": {}, "882": {},
}

// IsRepeatable reports whether tag may occur more than once in a record.
func IsRepeatable(tag string) bool {
	_, ok := nonRepeatableTags[tag]
	return !ok
}
