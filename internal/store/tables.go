package store

// Table names for every persistent entity of the data model (spec.md §3).
// Kept as constants rather than an enum-like type so the indexing packages
// can pass them straight to Tx.Table without a translation layer.
const (
	TableDocuments             = "documents"
	TableFieldsIDMap           = "fields_id_map"
	TableExternalDocsHard      = "external_documents_ids.hard"
	TableExternalDocsSoft      = "external_documents_ids.soft"
	TableWordDocids            = "word_docids"
	TableWordPairProximity     = "word_pair_proximity_docids"
	TableWordPosition          = "word_position_docids"
	TableFieldIDWordCount      = "field_id_word_count_docids"
	TableFacetNumber           = "facet_number_docids"
	TableFacetString           = "facet_string_docids"
	TableDocidWordPositions    = "docid_word_positions"
	TableDocidFieldFacetValues = "docid_field_facet_values"
	TableFieldFacetedDocids    = "field_faceted_documents_ids"
	TableGeoPoints             = "geo_points"
	TableGeoDocids             = "geo_documents_ids"
	TableWordPrefixDocids      = "word_prefix_docids"
	TableWordPrefixPairProx    = "word_prefix_pair_proximity_docids"
	TableWordPrefixPosition    = "word_prefix_position_docids"
	TableWordsFst              = "words_fst"
	TableWordsPrefixesFst      = "words_prefixes_fst"
	TableFieldDistribution     = "field_distribution"
	TableMeta                  = "meta"
)

// AllTables lists every table ClearDocuments must reset, excluding
// TableFieldsIDMap (field ids are never reassigned, spec.md §4.8) and
// TableMeta (holds the primary key and other durable index metadata, not a
// document-derived table).
var AllTables = []string{
	TableDocuments,
	TableExternalDocsHard,
	TableExternalDocsSoft,
	TableWordDocids,
	TableWordPairProximity,
	TableWordPosition,
	TableFieldIDWordCount,
	TableFacetNumber,
	TableFacetString,
	TableDocidWordPositions,
	TableDocidFieldFacetValues,
	TableFieldFacetedDocids,
	TableGeoPoints,
	TableGeoDocids,
	TableWordPrefixDocids,
	TableWordPrefixPairProx,
	TableWordPrefixPosition,
	TableWordsFst,
	TableWordsPrefixesFst,
	TableFieldDistribution,
}
