package category

// SESAR material values arrive as ">"-separated paths from the SESAR
// classification, e.g. "Rock>Igneous>Volcanic>Felsic" or "Liquid>aqueous".

// SESARMaterial maps SESAR's material field to material keys.
var SESARMaterial = NewMetaMapper(
	EndsWith("mat:rock", "Rock"),
	EndsWith("mat:mineral", "Mineral"),
	EndsWith("mat:liquidwater", "aqueous"),
	EndsWith("mat:sediment", "Sediment"),
	EndsWith("mat:soil", "Soil"),
	EndsWith("mat:particulate", "Particulate"),
	EndsWith("mat:organicmaterial", "Biology"),
	EndsWith("mat:anyanthropogenicmaterial", "Synthetic"),
	Equals("mat:rock",
		"Glass>Other",
		"Igneous>Other",
		"Igneous>Volcanic>Felsic>NotApplicable",
		"Igneous>Volcanic>Other",
		"Metamorphic>Other",
		"Sedimentary>Other",
		"Xenolithic>Other",
	),
	Equals("mat:sediment", "Tephra"),
	Equals("mat:anyice", "Ice"),
	Equals("mat:organicmaterial",
		"Siderite>Mineral",
		"Macrobiology>Other",
		"Organic Material",
	),
	Equals("mat:nonaqueousliquid", "Liquid>organic"),
	Equals("mat:mineral",
		"Ore>Other",
		"FeldsparGroup>Other",
		"Epidote>Other",
		"Enstatite>Other",
		"Betpakdalite>Other",
		"Aurichalcite>Other",
		"Augite>Other",
		"Aragonite>Biology",
		"AmphiboleGroup>Other",
		"Actinolite>Other",
	),
	Equals("mat:gas", "Gas"),
	Equals("mat:biogenicnonorganicmaterial",
		"Macrobiology>Coral>Biology",
		"Coral>Biology",
	),
	Equals("mat:earthmaterial", "Natural Solid Material"),
	Equals("mat:mixedsoilsedimentrock", "Mixed soil, sediment, rock"),
	Equals("mat:material", "Material"),
)

// SESARSpecimen maps SESAR's sampleType field to specimen keys.
var SESARSpecimen = NewMetaMapper(
	Equals("spec:othersolidobject",
		"Core",
		"Core Half Round",
		"Core Piece",
		"Core Quarter Round",
		"Core Section",
		"Core Section Half",
		"Core Sub-Piece",
		"Core Whole Round",
		"Grab",
		"Individual Sample",
		"Individual Sample>Cube",
		"Individual Sample>Cylinder",
		"Individual Sample>Slab",
		"Individual Sample>Specimen",
		"Oriented Core",
	),
	Equals("spec:fluidincontainer",
		"CTD",
		"Individual Sample>Gas",
		"Individual Sample>Liquid",
	),
	Equals("spec:experimentalproduct", "Experimental Specimen"),
	Equals("spec:biomeaggregation", "Trawl"),
	Equals("spec:analyticalpreparation",
		"Individual Sample>Bead",
		"Individual Sample>Chemical Fraction",
		"Individual Sample>Culture",
		"Individual Sample>Mechanical Fraction",
		"Individual Sample>Powder",
		"Individual Sample>Smear",
		"Individual Sample>Thin Section",
		"Individual Sample>Toothpick",
		"Individual Sample>U-Channel",
		"Rock Powder",
	),
	Equals("spec:anyaggregation", "Cuttings", "Dredge"),
)

// SESARContext maps SESAR's material field, disambiguated by the primary
// location type, to sampled feature keys. Paired rules sit ahead of the
// suffix rule they overlap with inside the same Ordered group.
var SESARContext = NewMetaMapper(
	EndsWith("sf:earthinterior", "Rock"),
	EndsWith("sf:earthinterior", "Mineral"),
	Equals("sf:subsurfacefluidreservoir", "Gas"),
	Ordered(
		Paired("sf:subaerialsurfaceenvironment", "Microbiology>Soil", "floodplain"),
		EndsWith("sf:subaerialsurfaceenvironment", "Soil"),
	),
	Ordered(
		Paired("sf:marinewaterbodybottom", "Sediment", "sea"),
		Paired("sf:lakeriverstreambottom", "Sediment", "lake"),
	),
	Paired("sf:terrestrialwaterbody", "", "lake"),
	Paired("sf:terrestrialwaterbody", "Liquid>aqueous", "Mountain"),
	Paired("sf:marinewaterbody", "Liquid>aqueous", "Sea"),
	Paired("sf:marinewaterbody", "Biology", "Vent"),
	Paired("sf:subsurfacefluidreservoir", "Liquid>aqueous", "Vent"),
	Paired("sf:subsurfacefluidreservoir", "Liquid>aqueous", "floodplain, aquifer"),
	Paired("sf:subaerialsurfaceenvironment", "Sedimentary>GlacialAndOrPaleosol>Rock", "Creek bank"),
)
