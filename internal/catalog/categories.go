package catalog

// DefaultCategories are the business categories searched in every area, in
// traversal order.
var DefaultCategories = []string{
	"Butcher shop", "Natural products store", "Fishmonger", "Fruit shop", "Florist", "Jewelry",
	"Pastry shop", "Gourmet store", "Delicatessen", "Fruit juice bar", "Café", "Bakery",
	"Rope shop of fruits", "Zapatillas", "Stationery", "Toys", "Perfumery", "Cosmetics",
	"Liquor store", "Winery", "Organic products store", "Boutique", "Clothing store",
	"Shoe store", "Sports store", "Electronics store", "Furniture store", "Hardware store",
	"Pet store", "Bookstore", "Music store", "Video game store", "Toy store", "Gift shop",
	"Souvenir shop", "Hobby store", "Craft store", "Art supplies store",
	"Party supplies store", "Office supplies store", "Stationery store", "Computer store",
	"Phone store", "Camera store", "Photography studio", "Printing shop", "Copy shop",
	"Jewelry store", "Watch store", "Optical store", "Toy library", "Game store",
	"Board game store", "Puzzle store", "Rope shop of toys", "Clothing rental",
	"Costume rental", "Formal wear rental", "Baby store", "Maternity store",
	"Children’s clothing store", "Toy rental", "Book rental", "Movie rental", "Music rental",
	"Video rental", "Game rental", "Library", "Cultural center", "Art gallery", "Museum",
	"Theater", "Cinema", "Concert hall", "Dance academy", "Music academy", "Art academy",
	"Drama academy", "Painting academy", "Sculpture academy", "Photography academy",
	"Fashion academy", "Design academy", "Interior design academy", "Graphic design academy",
	"Web design academy", "Marketing academy", "Advertising agency", "Public relations agency",
	"Event planning agency", "Wedding planner", "Party planner", "Catering service",
	"Travel agency", "Tour operator", "Hotel", "Hostel", "Apartment rental", "Vacation rental",
	"Bed and breakfast", "Camping", "Car rental", "Bike rental", "Scooter rental",
	"Beauty salon", "Hair salon", "Barbershop", "Nail salon", "Spa", "Massage parlor",
	"Tattoo parlor", "Piercing parlor", "Gym", "Fitness center", "Yoga studio",
	"Pilates studio", "Dance studio", "Martial arts school", "Boxing club", "Kickboxing club",
	"Judo club", "Karate club", "Taekwondo club", "Swimming school", "Diving school",
	"Surfing school", "Sailing school", "Tennis club", "Golf club", "Riding school",
	"Skating rink", "Ice skating rink", "Bowling alley", "Billiards hall", "Arcade",
	"Escape room", "Paintball field", "Laser tag arena", "Trampoline park", "Climbing wall",
	"Language school", "Driving school", "Cooking school", "Baking school",
	"Bartending school", "Barista school", "Sommelier school", "Nutrition school",
	"Personal training", "Life coaching", "Business coaching", "Career counseling",
	"Therapy center", "Psychology center", "Psychiatry center", "Dentistry", "Orthodontics",
	"Pediatrics", "Gynecology", "Ophthalmology", "Dermatology", "Cardiology", "Neurology",
	"Pharmacy", "Hospital", "Clinic", "Rehabilitation center", "Physical therapy",
	"Chiropractic", "Acupuncture", "Naturopathy", "Homeopathy", "Veterinary clinic",
	"Pet grooming", "Pet boarding", "Pet training", "Kennels", "Auto repair", "Car wash",
	"Tire shop", "Oil change", "Auto body shop", "Auto parts store", "Motorcycle repair",
	"Bicycle repair", "Scooter repair", "Boat repair", "RV repair", "Trailer repair",
	"Truck repair", "Heavy machinery repair", "Construction equipment repair",
	"Gardening service", "Landscaping service", "Pest control", "Cleaning service",
	"Housekeeping", "Laundry service", "Dry cleaning", "Ironing service", "Tailoring",
	"Sewing service", "Embroidery service", "Knitting service", "Crochet service",
	"Accounting firm", "Tax service", "Financial advisor", "Insurance agency", "Legal service",
	"Notary", "Real estate agency", "Property management", "Architectural firm",
	"Engineering firm", "Construction company", "Plumbing service", "Electrical service",
	"HVAC service", "Roofing service", "Painting service", "Carpentry service",
	"Masonry service", "Tiling service", "Flooring service", "Insulation service",
	"Waterproofing service",
}
