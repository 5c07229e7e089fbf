package assemble

// Search document field names. These are part of the index contract and
// change only together with an index migration.
const (
	FieldID                     = "id"
	FieldCoreID                 = "isb_core_id"
	FieldSource                 = "source"
	FieldLabel                  = "label"
	FieldDescription            = "description"
	FieldSearchText             = "searchText"
	FieldContextCategory        = "hasContextCategory"
	FieldContextConfidence      = "hasContextCategoryConfidence"
	FieldMaterialCategory       = "hasMaterialCategory"
	FieldMaterialConfidence     = "hasMaterialCategoryConfidence"
	FieldSpecimenCategory       = "hasSpecimenCategory"
	FieldSpecimenConfidence     = "hasSpecimenCategoryConfidence"
	FieldKeywords               = "keywords"
	FieldInformalClassification = "informalClassification"
	FieldRegistrant             = "registrant"
	FieldSamplingPurpose        = "samplingPurpose"
	FieldAuthorizedBy           = "authorizedBy"
	FieldCompliesWith           = "compliesWith"
	FieldRelatedResource        = "relatedResource_isb_core_id"
	FieldIndexUpdatedTime       = "indexUpdatedTime"
	FieldSourceUpdatedTime      = "sourceUpdatedTime"

	FieldProducedByID                = "producedBy_isb_core_id"
	FieldProducedByLabel             = "producedBy_label"
	FieldProducedByDescription       = "producedBy_description"
	FieldProducedByFeatureOfInterest = "producedBy_hasFeatureOfInterest"
	FieldProducedByResponsibility    = "producedBy_responsibility"
	FieldProducedByResultTime        = "producedBy_resultTime"

	FieldSiteDescription = "producedBy_samplingSite_description"
	FieldSiteLabel       = "producedBy_samplingSite_label"
	FieldSitePlaceName   = "producedBy_samplingSite_placeName"
	FieldSiteElevation   = "producedBy_samplingSite_location_elevationInMeters"
	FieldSiteLatitude    = "producedBy_samplingSite_location_latitude"
	FieldSiteLongitude   = "producedBy_samplingSite_location_longitude"
	FieldSiteLatLon      = "producedBy_samplingSite_location_latlon"
	FieldSiteLL          = "producedBy_samplingSite_location_ll"
	FieldSiteRPT         = "producedBy_samplingSite_location_rpt"
	FieldSiteBB          = "producedBy_samplingSite_location_bb"

	FieldCurationLabel             = "curation_label"
	FieldCurationDescription       = "curation_description"
	FieldCurationAccessConstraints = "curation_accessConstraints"
	FieldCurationLocation          = "curation_location"
	FieldCurationResponsibility    = "curation_responsibility"
)
